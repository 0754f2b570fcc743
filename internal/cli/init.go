// Package cli holds the start-up steps shared by the finboard binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/sheets/memory"
	"finboard/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(component, level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and exits
// the process when it is invalid. worker selects the worker's rule set.
func LoadAndValidateConfig(logger *log.Logger, worker bool) *config.Config {
	cfg := config.Load()
	validate := cfg.Validate
	if worker {
		validate = cfg.ValidateWorker
	}
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, applying migrations, or exits.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return repo
}

// LocalSpreadsheetID is the spreadsheet id fixture ranges are served under.
const LocalSpreadsheetID = "local"

// InitSheetsReader picks the spreadsheet import source: Google Sheets when
// a service account is configured, local CSV fixtures when a directory is
// given, otherwise none. Exits when the configured source cannot be set up.
func InitSheetsReader(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.RowReader {
	creds := gsheet.Credentials{JSON: cfg.GoogleServiceAccountJSON, File: cfg.GoogleServiceAccountFile}
	switch {
	case creds.Configured():
		client, err := gsheet.New(ctx, creds)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets import source enabled")
		return client
	case cfg.SheetsFixtureDir != "":
		store := memory.New()
		n, err := store.LoadDir(LocalSpreadsheetID, cfg.SheetsFixtureDir)
		if err != nil {
			logger.Error("Failed to load sheet fixtures", log.FieldError, err, "dir", cfg.SheetsFixtureDir)
			os.Exit(1)
		}
		logger.Info("Serving local sheet fixtures", "dir", cfg.SheetsFixtureDir, "ranges", n, "spreadsheet_id", LocalSpreadsheetID)
		return store
	default:
		logger.Info("Sheets import source disabled, no service account configured")
		return nil
	}
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or when
// parent is done. Cleanup then runs with a context bounded by timeout and
// the returned channel is closed when it returns.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Shutdown requested")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
