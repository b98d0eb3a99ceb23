package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx := context.Background()
	repo := storage.NewCSVRepository(cfg.TransactionsFile)
	if err := repo.EnsureInitialized(ctx); err != nil {
		logger.Error("Failed to initialize transactions file", applog.FieldError, err, "path", cfg.TransactionsFile)
		os.Exit(1)
	}

	// Change events are optional; without a broker mutations are not announced.
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = client
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	svc := services.NewTransactionService(repo, publisher)
	defer svc.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready: func(ctx context.Context) error {
			_, err := repo.ReadAll(ctx)
			return err
		},
	}, svc, query.NewEngine(repo))

	serve := func(context.Context) error {
		logger.Info("Starting fintrack server",
			"addr", cfg.Addr(),
			"transactions_file", cfg.TransactionsFile,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	if err := cli.Run(ctx, logger, 30*time.Second, []cli.Task{serve}, srv.Shutdown); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
}
