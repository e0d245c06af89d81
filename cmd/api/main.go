package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio/internal/api"
	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/content"
	"portfolio/internal/database"
	"portfolio/internal/metrics"
	"portfolio/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 内容库不可用时仍然可以用静态数据生成简历，只记录告警
	var db *gorm.DB
	if cfg.Database.Enabled {
		conn, err := database.InitDatabase(cfg.Database)
		if err != nil {
			logger.Warn("database unavailable, serving bundled content", slog.Any("error", err))
		} else if err := database.Migrate(conn); err != nil {
			logger.Warn("database migrate failed, serving bundled content", slog.Any("error", err))
		} else {
			db = conn
			logger.Info("database connection ready",
				slog.String("host", cfg.Database.Host),
				slog.Int("port", cfg.Database.Port),
				slog.String("db", cfg.Database.Name),
			)
		}
	}

	var redisClient *redis.Client
	var asynqClient *asynq.Client
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, rate limit and archives disabled", slog.Any("error", err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()

			asynqClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
			defer asynqClient.Close()
			logger.Info("redis connection ready", slog.String("addr", cfg.Redis.Addr()))
		}
	}

	var storageClient *storage.Client
	if cfg.MinIO.Enabled {
		client, err := storage.NewClient(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
		storageClient = client
		logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))
	}

	var verifier *auth.Verifier
	if cfg.Auth.PublicKeyPEM != "" {
		v, err := auth.NewVerifier([]byte(cfg.Auth.PublicKeyPEM), cfg.Auth.Issuer)
		if err != nil {
			log.Fatalf("init token verifier: %v", err)
		}
		verifier = v
	}

	// 注意：db 为 nil 时不能直接传 *GormStore，否则接口非 nil
	var store content.Store
	if db != nil {
		store = content.NewGormStore(db)
	}
	fetcher := content.NewFetcher(store, logger)
	fetcher.OnFallback(metrics.CVFallback)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		Config:      cfg,
		Fetcher:     fetcher,
		DB:          db,
		Redis:       redisClient,
		AsynqClient: asynqClient,
		Storage:     storageClient,
		Verifier:    verifier,
		Logger:      logger,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
