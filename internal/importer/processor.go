package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

// Store is the persistence the processor needs.
type Store interface {
	GetImportJob(ctx context.Context, id string) (core.ImportJob, error)
	GetAccount(ctx context.Context, ownerID, id string) (core.Account, error)
	ClaimImportJob(ctx context.Context, id string) (bool, error)
	FinishImportJob(ctx context.Context, id string, status core.JobStatus, imported, skipped int, errMsg string) error
	CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
}

// Processor runs import jobs. A job is claimed before any work so that a
// queue redelivery and the stale-job poller never import it twice.
type Processor struct {
	store      Store
	reader     sheets.RowReader
	onImported func(ownerID string)
}

// NewProcessor builds a processor. reader may be nil, in which case sheets
// jobs fail. onImported, when set, runs after rows were written for an owner.
func NewProcessor(store Store, reader sheets.RowReader, onImported func(ownerID string)) *Processor {
	return &Processor{store: store, reader: reader, onImported: onImported}
}

// Process runs one job and returns its final state. Problems with the
// job's input mark it failed and are not returned as errors; only store
// failures are.
func (p *Processor) Process(ctx context.Context, jobID string) (core.ImportJob, error) {
	job, err := p.store.GetImportJob(ctx, jobID)
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("get import job: %w", err)
	}

	claimed, err := p.store.ClaimImportJob(ctx, jobID)
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("claim import job: %w", err)
	}
	if !claimed {
		slog.InfoContext(ctx, "Import job already taken", "job_id", jobID, "status", job.Status)
		return job, nil
	}

	start := time.Now()
	imported, skipped, runErr := p.run(ctx, job)
	status, errMsg := core.JobCompleted, ""
	if runErr != nil {
		status, errMsg = core.JobFailed, runErr.Error()
		slog.WarnContext(ctx, "Import job failed", "job_id", jobID, "source", job.Spec.Source, "error", runErr)
	}

	if err := p.store.FinishImportJob(ctx, jobID, status, imported, skipped, errMsg); err != nil {
		return core.ImportJob{}, fmt.Errorf("finish import job: %w", err)
	}

	if imported > 0 && p.onImported != nil {
		p.onImported(job.OwnerID)
	}

	slog.InfoContext(ctx, "Import job finished",
		"job_id", jobID,
		"owner_id", job.OwnerID,
		"status", status,
		"imported", imported,
		"skipped", skipped,
		"duration", time.Since(start))

	return p.store.GetImportJob(ctx, jobID)
}

// run imports the job's rows. The target account is checked again here
// because it may have been deleted while the job sat in the queue.
func (p *Processor) run(ctx context.Context, job core.ImportJob) (imported, skipped int, err error) {
	if _, err := p.store.GetAccount(ctx, job.OwnerID, job.Spec.AccountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return 0, 0, fmt.Errorf("account %s: %w", job.Spec.AccountID, core.ErrMissingAccount)
		}
		return 0, 0, fmt.Errorf("check account: %w", err)
	}

	rows, err := readRows(ctx, job.Spec, p.reader)
	if err != nil {
		return 0, 0, err
	}

	txs, skipped := Convert(rows, job.Spec)
	if len(txs) == 0 {
		return 0, skipped, fmt.Errorf("%w (%d skipped)", ErrNoRows, skipped)
	}

	created, err := p.store.CreateTransactions(ctx, txs)
	if err != nil {
		return 0, skipped, fmt.Errorf("insert transactions: %w", err)
	}
	return len(created), skipped, nil
}
