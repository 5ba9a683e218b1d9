package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"

	"textract/internal/app"
	"textract/internal/config"
	"textract/internal/logger"
)

func main() {
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Redis.Close()
	if deps.DB != nil {
		defer deps.DB.Close()
	}

	a, err := app.New(cfg, deps.DB, deps.Redis, deps.NSQProducer)
	if err != nil {
		slog.Error("failed to assemble app", "error", err)
		os.Exit(1)
	}

	// Worker: OCR task consumer
	nsqCfg := nsq.NewConfig()
	nsqCfg.MsgTimeout = time.Duration(cfg.TaskTimeLimit) * time.Second
	nsqCfg.MaxInFlight = cfg.WorkerConcurrency * cfg.WorkerPrefetch
	nsqCfg.MaxAttempts = uint16(cfg.TaskMaxAttempts)

	consumer, err := nsq.NewConsumer(config.TopicOCRTask, config.ChannelWorker, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
		os.Exit(1)
	}
	consumer.AddConcurrentHandlers(a.Consumer, cfg.WorkerConcurrency)
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "error", err)
		os.Exit(1)
	}
	slog.Info("OCR task consumer connected", "topic", config.TopicOCRTask, "concurrency", cfg.WorkerConcurrency)

	defer deps.NSQProducer.Stop()
	defer consumer.Stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
