package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/api/middleware"
	"portfolio/internal/config"
	"portfolio/internal/content"
	"portfolio/internal/cv"
	"portfolio/internal/metrics"
)

const cvFilename = "cv.pdf"

type snapshotter interface {
	Snapshot(ctx context.Context) (content.Snapshot, error)
}

// CVHandler 处理 generate-cv 请求：每次都重新获取内容并生成 PDF。
type CVHandler struct {
	content    snapshotter
	websiteURL string
	author     string
	render     func(content.Snapshot, cv.Options) (*cv.Result, error)
	now        func() time.Time
}

// NewCVHandler 构造处理器。cfg.WebsiteURL 为空时使用请求自身的 origin。
func NewCVHandler(fetcher snapshotter, cfg config.CVConfig) *CVHandler {
	return &CVHandler{
		content:    fetcher,
		websiteURL: strings.TrimSpace(cfg.WebsiteURL),
		author:     strings.TrimSpace(cfg.Author),
		render:     cv.Render,
		now:        time.Now,
	}
}

// GenerateCV 返回附件形式的 PDF。任何失败都不会返回部分文件。
func (h *CVHandler) GenerateCV(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	start := time.Now()

	data, pages, err := h.generate(c, log)
	if err != nil {
		metrics.ObserveCVGeneration("error", time.Since(start).Seconds(), 0)
		log.Error("generate cv failed", slog.Any("error", err))
		ErrorWithDetails(c, http.StatusInternalServerError, "Failed to generate CV", err)
		return
	}
	metrics.ObserveCVGeneration("ok", time.Since(start).Seconds(), pages)

	c.Header("Content-Disposition", `attachment; filename="`+cvFilename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)

	log.Info("cv generated",
		slog.Int("pages", pages),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (h *CVHandler) generate(c *gin.Context, log *slog.Logger) ([]byte, int, error) {
	snap, err := h.content.Snapshot(c.Request.Context())
	if err != nil {
		return nil, 0, err
	}

	website := h.websiteURL
	if website == "" {
		website = requestOrigin(c)
	}

	res, err := h.render(snap, cv.Options{
		WebsiteURL: website,
		Author:     h.author,
		Now:        h.now(),
		Logger:     log,
	})
	if err != nil {
		return nil, 0, err
	}
	data, err := res.Document.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return data, res.Pages(), nil
}

// requestOrigin 还原客户端看到的 scheme://host，优先使用反向代理头。
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			scheme = proto
		}
	}

	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}
