package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/example/partsmirror/internal/app"
	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/jobs"
	"github.com/example/partsmirror/internal/telemetry"
)

const serviceName = "partsmirror-worker"

func main() {
	cfg := config.Load()
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR must be set for the worker")
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), serviceName, cfg.OtelEndpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	runtime := app.Build(cfg, slogger)
	defer runtime.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	entryID, err := scheduler.Register(cfg.Sync.Cron, jobs.NewScheduledSyncTask())
	if err != nil {
		log.Fatalf("register scheduled sync %q: %v", cfg.Sync.Cron, err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("scheduler start: %v", err)
	}
	defer scheduler.Shutdown()
	slogger.Info("scheduled sync registered", "cron", cfg.Sync.Cron, "entry_id", entryID)

	// Sync runs must not overlap.
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{jobs.QueueSync: 1},
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			backoff := []time.Duration{5, 15, 30}
			if n <= 0 {
				return 0
			}
			if n <= len(backoff) {
				return backoff[n-1] * time.Minute
			}
			return 30 * time.Minute
		},
	})

	mux := asynq.NewServeMux()
	jobs.NewSyncProcessor(runtime.Engine.Catalog, slogger).Register(mux)

	slogger.Info("worker started")
	if err := srv.Run(mux); err != nil {
		log.Printf("worker error: %v", err)
	}
}
