package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/cache"
	"github.com/openfeeds/homefeed/internal/db"
	"github.com/openfeeds/homefeed/internal/migrator"
	"github.com/openfeeds/homefeed/internal/worker"
	"github.com/openfeeds/homefeed/pkg/config"
	"github.com/openfeeds/homefeed/pkg/logging"
	"github.com/openfeeds/homefeed/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting homefeed migration worker")

	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	feedCache, err := cache.New(&cfg.Redis, &cfg.Feed)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer feedCache.Close()

	queue := worker.NewQueue(feedCache.Client(), cfg.Worker.Queue)
	m := migrator.New(database.DB, feedCache, logger)
	runner := worker.NewRunner(queue, m, &cfg.Worker)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down worker...")
		cancel()
	}()

	logger.Info("Worker consuming", zap.String("queue", cfg.Worker.Queue), zap.Int("concurrency", cfg.Worker.Concurrency))
	runner.Run(ctx)

	logger.Info("Worker exited")
}
