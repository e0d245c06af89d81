package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio/internal/api/middleware"
	"portfolio/internal/auth"
	"portfolio/internal/database"
	"portfolio/internal/tasks"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: "default", Type: task.Type()}, nil
}

type fakeArchiveStorage struct {
	exists   bool
	key      string
	filename string
	ttl      time.Duration
}

func (s *fakeArchiveStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	s.key = key
	return s.exists, nil
}

func (s *fakeArchiveStorage) GeneratePresignedURL(_ context.Context, key string, ttl time.Duration, filename string) (string, error) {
	s.ttl, s.filename = ttl, filename
	return "https://files.example.org/" + key + "?sig=abc", nil
}

type tokenTable map[string]*auth.Claims

func (t tokenTable) ValidateToken(token string) (*auth.Claims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

var testTokens = tokenTable{
	"admin-token": {Role: auth.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"}},
	"user-token":  {Role: "viewer", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}},
}

func newArchiveTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.CVArchive{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newArchiveRouter(h *ArchiveHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := NewRouter(quietLogger())
	g := r.Group("/api/v1/cv/archives", middleware.AuthMiddleware(testTokens), middleware.RequireAdmin())
	g.POST("", h.CreateArchive)
	g.GET("/latest/download-link", h.GetLatestDownloadLink)
	return r
}

func doArchiveRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Correlation-ID", "corr-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateArchive(t *testing.T) {
	queue := &fakeQueue{}
	h := NewArchiveHandler(newArchiveTestDB(t), queue, &fakeArchiveStorage{}, "https://portfolio.example.org")
	r := newArchiveRouter(h)

	w := doArchiveRequest(r, http.MethodPost, "/api/v1/cv/archives", "admin-token")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["task_id"] != "t1" || body["correlation_id"] != "corr-42" || body["status"] != "pending" {
		t.Fatalf("body = %v", body)
	}

	if len(queue.tasks) != 1 || queue.tasks[0].Type() != tasks.TypeCVArchive {
		t.Fatalf("enqueued = %v", queue.tasks)
	}
	var payload tasks.CVArchivePayload
	if err := json.Unmarshal(queue.tasks[0].Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := tasks.CVArchivePayload{RequestedBy: "admin-1", CorrelationID: "corr-42", WebsiteURL: "https://portfolio.example.org"}
	if payload != want {
		t.Fatalf("payload = %+v, want %+v", payload, want)
	}
}

func TestCreateArchiveRequiresAdmin(t *testing.T) {
	queue := &fakeQueue{}
	r := newArchiveRouter(NewArchiveHandler(newArchiveTestDB(t), queue, &fakeArchiveStorage{}, ""))

	if w := doArchiveRequest(r, http.MethodPost, "/api/v1/cv/archives", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}
	if w := doArchiveRequest(r, http.MethodPost, "/api/v1/cv/archives", "user-token"); w.Code != http.StatusForbidden {
		t.Fatalf("viewer status = %d", w.Code)
	}
	if len(queue.tasks) != 0 {
		t.Fatalf("unexpected tasks: %d", len(queue.tasks))
	}
}

func TestCreateArchiveEnqueueError(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	r := newArchiveRouter(NewArchiveHandler(newArchiveTestDB(t), queue, &fakeArchiveStorage{}, ""))

	if w := doArchiveRequest(r, http.MethodPost, "/api/v1/cv/archives", "admin-token"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLatestDownloadLink(t *testing.T) {
	db := newArchiveTestDB(t)
	storage := &fakeArchiveStorage{exists: true}
	r := newArchiveRouter(NewArchiveHandler(db, &fakeQueue{}, storage, ""))
	const path = "/api/v1/cv/archives/latest/download-link"

	if w := doArchiveRequest(r, http.MethodGet, path, "admin-token"); w.Code != http.StatusConflict {
		t.Fatalf("empty table status = %d", w.Code)
	}

	older := database.CVArchive{ObjectKey: "cv-archives/2026/03/old.pdf", SizeBytes: 100, Pages: 1}
	older.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := database.CVArchive{ObjectKey: "cv-archives/2026/03/new.pdf", SizeBytes: 2048, Pages: 3}
	newer.CreatedAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := db.Create(&older).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Create(&newer).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doArchiveRequest(r, http.MethodGet, path, "admin-token")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
		ArchiveID uint   `json:"archive_id"`
		Pages     int    `json:"pages"`
		SizeBytes int64  `json:"size_bytes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ArchiveID != newer.ID || body.Pages != 3 || body.SizeBytes != 2048 || body.ExpiresIn != 300 {
		t.Fatalf("body = %+v", body)
	}
	if storage.key != newer.ObjectKey || storage.filename != "cv-2026-03-14.pdf" || storage.ttl != 5*time.Minute {
		t.Fatalf("storage call = %+v", storage)
	}

	storage.exists = false
	if w := doArchiveRequest(r, http.MethodGet, path, "admin-token"); w.Code != http.StatusGone {
		t.Fatalf("missing object status = %d", w.Code)
	}
}
