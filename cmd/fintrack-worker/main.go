package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting fintrack-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx := context.Background()

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", applog.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", applog.FieldError, err, "mirror", mirrorCfg.Type)
		os.Exit(1)
	}

	repo := storage.NewCSVRepository(cfg.TransactionsFile)
	w := worker.NewMirrorWorker(repo, mirror.Mirror)

	// Events published while the worker was down are covered by a full resync.
	if err := w.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", applog.FieldError, err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	consume := func(ctx context.Context) error {
		return client.Run(ctx, w.HandleEvent)
	}
	closeClient := func(context.Context) error { return client.Close() }

	if err := cli.Run(ctx, logger, 10*time.Second, []cli.Task{consume}, closeClient); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
}
