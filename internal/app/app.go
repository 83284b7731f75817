// Package app builds the shared runtime of the API server and the sync worker.
package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/database"
	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/upstream"
)

// App holds the connections and the cache engine.
type App struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Engine *services.Engine
}

// Build connects to Postgres (and Redis when configured) and wires the engine.
func Build(cfg *config.Config, logger *slog.Logger) *App {
	db := database.Connect(cfg.DatabaseURL, cfg.DatabaseLogLevel)
	rdb := config.NewRedisClient(cfg)
	if cfg.RedisAddr != "" && rdb == nil {
		logger.Warn("redis unavailable, using in-process locks", "addr", cfg.RedisAddr)
	}

	return &App{
		DB:     db,
		Redis:  rdb,
		Engine: NewEngine(cfg, db, rdb, logger),
	}
}

// NewEngine wires the controllers over db with a vendor client built from cfg.
func NewEngine(cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *services.Engine {
	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	tokens := upstream.NewTokenProvider(cfg.Upstream.TokenURL, cfg.Upstream.ClientID, cfg.Upstream.ClientSecret, httpClient)
	vendor := upstream.NewClient(cfg.Upstream.BaseURL, tokens, httpClient)

	deps := services.Deps{
		Store:  store.New(db),
		Vendor: vendor,
		Locker: NewLocker(rdb, logger),
		Logger: logger,
	}
	return services.NewEngine(deps, cfg.Cache, cfg.Sync, NewPublisher(cfg, logger))
}

// NewLocker returns a Redis lock when a client is available and an
// in-process lock otherwise.
func NewLocker(rdb *redis.Client, logger *slog.Logger) services.KeyLocker {
	if rdb == nil {
		return services.NewLocalLocker()
	}
	return services.NewRedisLocker(rdb, 0, logger)
}

// NewPublisher fans sync events out to RabbitMQ and Telegram when configured.
func NewPublisher(cfg *config.Config, logger *slog.Logger) services.EventPublisher {
	var publishers services.MultiPublisher
	if cfg.RabbitMQURL != "" {
		publishers = append(publishers, services.NewAMQPPublisher(cfg.RabbitMQURL, logger))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != "" {
		publishers = append(publishers, services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChatID, logger))
	}
	if len(publishers) == 0 {
		return services.NoopPublisher{}
	}
	return publishers
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
