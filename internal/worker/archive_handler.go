package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio/internal/content"
	"portfolio/internal/cv"
	"portfolio/internal/database"
	"portfolio/internal/errcode"
	"portfolio/internal/metrics"
	"portfolio/internal/tasks"
)

type objectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

type notifyPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ArchiveTaskHandler 负责消费简历归档任务：生成 PDF、上传 MinIO、写归档记录并通知前端。
type ArchiveTaskHandler struct {
	db          *gorm.DB
	store       content.Store
	storage     objectUploader
	redisClient notifyPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewArchiveTaskHandler 创建任务处理器。store 可以为 nil，此时使用静态内容。
func NewArchiveTaskHandler(
	db *gorm.DB,
	store content.Store,
	storage objectUploader,
	redisClient notifyPublisher,
	logger *slog.Logger,
) *ArchiveTaskHandler {
	return &ArchiveTaskHandler{
		db:          db,
		store:       store,
		storage:     storage,
		redisClient: redisClient,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ArchiveTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CVArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("requested_by", payload.RequestedBy),
	)
	log.Info("starting cv archive task")

	errorCode := errcode.SystemError
	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		notify := ArchiveNotifyMessage{
			Status:        StatusError,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errorCode,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publish(ctx, payload.RequestedBy, notify); err != nil {
			log.Error("publish archive error notification failed", slog.Any("error", err))
		}
	}()

	fallbacks := &fallbackSet{}
	fetcher := content.NewFetcher(h.store, log)
	fetcher.OnFallback(func(source string) {
		metrics.CVFallback(source)
		fallbacks.add(source)
	})

	start := time.Now()
	snap, err := fetcher.Snapshot(ctx)
	if err != nil {
		log.Error("fetch content snapshot failed", slog.Any("error", err))
		return err
	}

	now := h.now()
	res, err := cv.Render(snap, cv.Options{
		WebsiteURL: payload.WebsiteURL,
		Now:        now,
		Logger:     log,
	})
	var data []byte
	if err == nil {
		data, err = res.Document.Bytes()
	}
	if err != nil {
		metrics.ObserveCVGeneration("error", time.Since(start).Seconds(), 0)
		errorCode = errcode.RenderFailed
		log.Error("render cv failed", slog.Any("error", err))
		return fmt.Errorf("render cv: %w", err)
	}
	metrics.ObserveCVGeneration("ok", time.Since(start).Seconds(), res.Pages())

	objectName := ObjectName(now, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		errorCode = errcode.StorageFailed
		log.Error("upload cv to minio failed", slog.Any("error", err))
		return err
	}

	archive := database.CVArchive{
		ObjectKey:     objectName,
		SizeBytes:     int64(len(data)),
		Pages:         res.Pages(),
		RequestedBy:   payload.RequestedBy,
		CorrelationID: payload.CorrelationID,
	}
	if err := h.db.WithContext(ctx).Create(&archive).Error; err != nil {
		log.Error("insert cv archive failed", slog.Any("error", err))
		return fmt.Errorf("insert cv archive: %w", err)
	}

	notify := ArchiveNotifyMessage{
		Status:        StatusCompleted,
		ArchiveID:     archive.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Pages:         archive.Pages,
	}
	if sources := fallbacks.list(); len(sources) > 0 {
		notify.ErrorCode = errcode.ContentFallback
		notify.ErrorMessage = "部分内容不可用，已使用默认内容生成"
		notify.FallbackSources = sources
		log.Warn("cv archived with fallback content", slog.Any("sources", sources))
	}
	if err := h.publish(ctx, payload.RequestedBy, notify); err != nil {
		// 归档已经完成，通知失败不触发重试
		log.Error("publish archive notification failed", slog.Any("error", err))
	}

	log.Info("cv archive task completed",
		slog.Uint64("archive_id", uint64(archive.ID)),
		slog.String("object", objectName),
		slog.Int("pages", archive.Pages),
	)
	return nil
}

// ObjectName 返回归档对象的存储路径 cv-archives/<yyyy>/<mm>/<id>.pdf。
func ObjectName(at time.Time, id string) string {
	at = at.UTC()
	return fmt.Sprintf("cv-archives/%04d/%02d/%s.pdf", at.Year(), int(at.Month()), id)
}

func (h *ArchiveTaskHandler) publish(ctx context.Context, subject string, notify ArchiveNotifyMessage) error {
	if subject == "" {
		return nil
	}
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(subject)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

type fallbackSet struct {
	mu      sync.Mutex
	sources map[string]struct{}
}

func (s *fallbackSet) add(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sources == nil {
		s.sources = make(map[string]struct{})
	}
	s.sources[source] = struct{}{}
}

func (s *fallbackSet) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sources))
	for src := range s.sources {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}
