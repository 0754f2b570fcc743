package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/confirm"
	"finboard/internal/core"
	apphttp "finboard/internal/http"
	"finboard/internal/importer"
	"finboard/internal/log"
	"finboard/internal/services"
)

const (
	cacheSweepInterval   = time.Minute
	confirmSweepInterval = 30 * time.Second
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, false)
	logger = cli.SetupLogger(log.ComponentApp, cfg.LogLevel)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	cacheManager := cache.NewManager()
	summaryCache := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager.Register("summary", summaryCache)
	cacheManager.StartCleanup(cacheSweepInterval)
	defer cacheManager.Stop()

	confirms := confirm.NewRegistry(cfg.ConfirmTTL)

	summary := services.NewSummaryService(repo, summaryCache, cfg.Policy(), services.ZonedClock(cfg.Location()))
	ledger := services.NewLedgerService(repo, confirms, summary)

	reader := cli.InitSheetsReader(context.Background(), logger, cfg)

	var publisher services.JobPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Imports are processed asynchronously", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, imports run inline")
	}

	processor := importer.NewProcessor(repo, reader, summary.Invalidate)
	imports := services.NewImportService(repo, repo, publisher, processor)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		JWTSecret:          cfg.JWTSecret,
		JWTIssuer:          cfg.JWTIssuer,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HSTSEnabled:        cfg.HSTSEnabled,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}, apphttp.Deps{
		Summary: summary,
		Ledger:  ledger,
		Imports: imports,
		DB:      repo,
		Cache:   cacheManager,
		Logger:  logger,
	})

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	go sweepConfirmations(ctx, logger, confirms)

	logger.Info("Starting finboard server",
		"port", cfg.Port,
		"timezone", cfg.Timezone,
		"uncategorized_policy", cfg.Policy())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stop()
	}

	<-done
	logger.Info("Server stopped gracefully")
}

// sweepConfirmations cancels expired bulk-delete prompts until ctx is done.
func sweepConfirmations(ctx context.Context, logger *log.Logger, confirms *confirm.Registry) {
	ticker := time.NewTicker(confirmSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := confirms.Sweep(ctx); n > 0 {
				logger.DebugContext(ctx, "Expired confirmations swept", "count", n)
			}
		}
	}
}
