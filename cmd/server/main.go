package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/example/partsmirror/internal/app"
	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/handlers"
	"github.com/example/partsmirror/internal/jobs"
	"github.com/example/partsmirror/internal/routes"
	"github.com/example/partsmirror/internal/telemetry"
)

const serviceName = "partsmirror-api"

func main() {
	cfg := config.Load()
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}

	runtime := app.Build(cfg, slogger)
	defer runtime.Close()

	var trigger handlers.SyncTrigger
	if runtime.Redis != nil {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		trigger = jobs.NewDispatcher(client)
	} else {
		inline := jobs.NewInlineRunner(runtime.Engine.Catalog, slogger)
		defer inline.Wait()
		trigger = inline
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:      "Partsmirror API",
		ErrorHandler: handlers.ErrorHandler,
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(telemetry.Middleware(serviceName))

	routes.Register(fiberApp, cfg, runtime.Engine, trigger, slogger)

	go func() {
		<-ctx.Done()
		if err := fiberApp.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := fiberApp.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
