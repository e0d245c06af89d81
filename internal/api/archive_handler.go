package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"portfolio/internal/api/middleware"
	"portfolio/internal/database"
	"portfolio/internal/tasks"
)

const archiveLinkTTL = 5 * time.Minute

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type archiveStorage interface {
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
}

// ArchiveHandler 管理简历归档：入队生成任务、返回最新归档的下载链接。
type ArchiveHandler struct {
	db         *gorm.DB
	queue      taskEnqueuer
	storage    archiveStorage
	websiteURL string
}

// NewArchiveHandler 构造归档处理器。
func NewArchiveHandler(db *gorm.DB, queue taskEnqueuer, storage archiveStorage, websiteURL string) *ArchiveHandler {
	return &ArchiveHandler{db: db, queue: queue, storage: storage, websiteURL: websiteURL}
}

// CreateArchive 入队一次归档任务，结果通过 WebSocket 推送。
func (h *ArchiveHandler) CreateArchive(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	correlationID := middleware.GetCorrelationID(c)

	website := h.websiteURL
	if website == "" {
		website = requestOrigin(c)
	}

	task, err := tasks.NewCVArchiveTask(tasks.CVArchivePayload{
		RequestedBy:   middleware.GetSubject(c),
		CorrelationID: correlationID,
		WebsiteURL:    website,
	})
	if err != nil {
		log.Error("build archive task failed", slog.Any("error", err))
		Internal(c, "failed to create archive task")
		return
	}

	info, err := h.queue.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		log.Error("enqueue archive task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue archive task")
		return
	}

	log.Info("archive task enqueued", slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":        info.ID,
		"correlation_id": correlationID,
		"status":         "pending",
	})
}

// GetLatestDownloadLink 返回最新归档的限时下载链接。
func (h *ArchiveHandler) GetLatestDownloadLink(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	var archive database.CVArchive
	err := h.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").First(&archive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Conflict(c, "no cv archive yet")
			return
		}
		log.Error("query latest archive failed", slog.Any("error", err))
		Internal(c, "failed to query archives")
		return
	}

	exists, err := h.storage.ObjectExists(ctx, archive.ObjectKey)
	if err != nil {
		log.Error("stat archive object failed", slog.Any("error", err))
		Internal(c, "failed to check archive")
		return
	}
	if !exists {
		log.Warn("archive object missing", slog.String("object", archive.ObjectKey))
		Gone(c, "archive file no longer exists")
		return
	}

	filename := "cv-" + archive.CreatedAt.UTC().Format("2006-01-02") + ".pdf"
	url, err := h.storage.GeneratePresignedURL(ctx, archive.ObjectKey, archiveLinkTTL, filename)
	if err != nil {
		log.Error("presign archive url failed", slog.Any("error", err))
		Internal(c, "failed to create download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(archiveLinkTTL.Seconds()),
		"archive_id": archive.ID,
		"pages":      archive.Pages,
		"size_bytes": archive.SizeBytes,
		"created_at": archive.CreatedAt,
	})
}
