package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
)

type (
	// JobStore lists and recovers jobs the queue may have lost.
	JobStore interface {
		ListStaleImportJobs(ctx context.Context, minAge time.Duration, limit int) ([]core.ImportJob, error)
		ResetStuckImportJobs(ctx context.Context, minAge time.Duration) (int, error)
	}

	JobProcessor interface {
		Process(ctx context.Context, jobID string) (core.ImportJob, error)
	}
)

// Config holds the poller settings.
type Config struct {
	// PollInterval is how often pending jobs are looked for (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of jobs processed per poll (default: 10)
	BatchSize int

	// StuckAfter is how long a job may stay in processing before it is
	// considered abandoned by a crashed worker (default: 15m)
	StuckAfter time.Duration
}

// DefaultConfig returns the settings used for any zero field passed to NewImportWorker.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		StuckAfter:   15 * time.Minute,
	}
}

// ImportWorker processes import jobs delivered over AMQP and, as a backup,
// polls for pending jobs whose message never arrived.
type ImportWorker struct {
	store     JobStore
	processor JobProcessor
	config    Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewImportWorker creates a stopped worker. Call Start to run it.
func NewImportWorker(store JobStore, processor JobProcessor, config Config) *ImportWorker {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.StuckAfter <= 0 {
		config.StuckAfter = def.StuckAfter
	}
	return &ImportWorker{store: store, processor: processor, config: config}
}

// HandleImportMessage processes the job a message points at. A job that no
// longer exists is logged and acknowledged.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportJobMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"job_id", msg.JobID,
		"published_at", msg.Timestamp)

	job, err := w.processor.Process(ctx, msg.JobID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Import job not found, dropping message", "job_id", msg.JobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("process import job: %w", err)
	}

	slog.InfoContext(ctx, "Import message handled", "job_id", job.ID, "status", job.Status)
	return nil
}

// ProcessStaleJobs runs pending jobs older than one poll interval and
// returns how many were processed.
func (w *ImportWorker) ProcessStaleJobs(ctx context.Context) (int, error) {
	jobs, err := w.store.ListStaleImportJobs(ctx, w.config.PollInterval, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale import jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing stale import jobs", "count", len(jobs))

	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if _, err := w.processor.Process(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process stale import job", "job_id", job.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// Start recovers jobs abandoned by a previous run and begins polling.
// Returns an error if already running.
func (w *ImportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("import worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	if n, err := w.store.ResetStuckImportJobs(ctx, w.config.StuckAfter); err != nil {
		slog.WarnContext(ctx, "Failed to reset stuck import jobs", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset stuck import jobs", "count", n)
	}

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Import poller started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize)
	return nil
}

// Stop signals the poller and waits for the current batch to finish.
func (w *ImportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Import poller stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Import poller stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether Start was called without a matching Stop.
func (w *ImportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ImportWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *ImportWorker) poll(ctx context.Context) {
	if _, err := w.ProcessStaleJobs(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Stale import poll failed", "error", err)
	}
}
