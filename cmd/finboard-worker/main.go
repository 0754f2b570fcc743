package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cli"
	"finboard/internal/importer"
	"finboard/internal/log"
	"finboard/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, true)
	logger = cli.SetupLogger(log.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting finboard-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reader := cli.InitSheetsReader(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The API process owns the summary cache; its TTL bounds staleness
	// after an import finished here.
	processor := importer.NewProcessor(repo, reader, nil)
	importWorker := worker.NewImportWorker(repo, processor, worker.Config{
		PollInterval: cfg.ImportPollInterval,
		BatchSize:    cfg.ImportBatchSize,
	})

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, shutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker")
		if err := importWorker.Stop(ctx); err != nil {
			logger.Error("Import poller shutdown error", log.FieldError, err)
		}
	})

	if err := importWorker.Start(ctx); err != nil {
		logger.Error("Failed to start import poller", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeImportJobs(ctx, importWorker.HandleImportMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		stop()
	}()

	<-done
	logger.Info("Worker stopped")
}
