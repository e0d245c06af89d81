package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio/internal/api/middleware"
	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/content"
	"portfolio/internal/storage"
)

// Dependencies 汇总路由需要的外部依赖。除 Fetcher 外都可以为 nil，
// 缺失的依赖对应的路由不会注册。
type Dependencies struct {
	Config      *config.Config
	Fetcher     *content.Fetcher
	DB          *gorm.DB
	Redis       *redis.Client
	AsynqClient *asynq.Client
	Storage     *storage.Client
	Verifier    *auth.Verifier
	Logger      *slog.Logger
}

// RegisterRoutes 在 /api 下注册业务路由。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var counter redisRateCounter
	if deps.Redis != nil {
		counter = deps.Redis
	}

	cvHandler := NewCVHandler(deps.Fetcher, deps.Config.CV)

	api := router.Group("/api")
	api.GET("/generate-cv",
		RateLimitPerMinute(counter, "cv", deps.Config.CV.RateLimitPerMinute, nil),
		cvHandler.GenerateCV,
	)

	if deps.Verifier == nil {
		logger.Info("auth public key not configured, admin routes disabled")
		return
	}

	v1 := api.Group("/v1")
	authMiddleware := middleware.AuthMiddleware(deps.Verifier)

	if deps.Redis != nil {
		wsHandler := NewWsHandler(deps.Redis, deps.Verifier, logger, deps.Config.API.Origins())
		v1.GET("/ws", wsHandler.HandleConnection)
	}

	if deps.DB == nil || deps.AsynqClient == nil || deps.Storage == nil {
		logger.Info("archive routes disabled",
			slog.Bool("database", deps.DB != nil),
			slog.Bool("queue", deps.AsynqClient != nil),
			slog.Bool("storage", deps.Storage != nil),
		)
		return
	}

	archiveHandler := NewArchiveHandler(deps.DB, deps.AsynqClient, deps.Storage, deps.Config.CV.WebsiteURL)
	archives := v1.Group("/cv/archives")
	archives.Use(authMiddleware, middleware.RequireAdmin())
	{
		archives.POST("", archiveHandler.CreateArchive)
		archives.GET("/latest/download-link", archiveHandler.GetLatestDownloadLink)
	}
}
