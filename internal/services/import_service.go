package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finboard/internal/core"
)

// ImportService accepts import requests. With a publisher the job is queued
// for the worker, otherwise it runs before Submit returns.
type ImportService struct {
	jobs      ImportJobStore
	accounts  AccountStore
	publisher JobPublisher
	processor JobProcessor
}

// NewImportService wires the import flow. publisher may be nil, in which
// case jobs run inline through processor.
func NewImportService(jobs ImportJobStore, accounts AccountStore, publisher JobPublisher, processor JobProcessor) *ImportService {
	return &ImportService{jobs: jobs, accounts: accounts, publisher: publisher, processor: processor}
}

// Async reports whether submitted jobs are handed to the queue.
func (s *ImportService) Async() bool {
	return s.publisher != nil
}

// Submit validates spec, records a job and either queues or runs it.
func (s *ImportService) Submit(ctx context.Context, ownerID string, spec core.ImportSpec) (core.ImportJob, error) {
	if ownerID == "" {
		return core.ImportJob{}, core.ErrUnauthenticated
	}
	spec.AccountID = strings.TrimSpace(spec.AccountID)
	if err := spec.Validate(); err != nil {
		return core.ImportJob{}, err
	}
	if _, err := s.accounts.GetAccount(ctx, ownerID, spec.AccountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ImportJob{}, fmt.Errorf("account %s: %w", spec.AccountID, core.ErrMissingAccount)
		}
		return core.ImportJob{}, err
	}

	job, err := s.jobs.CreateImportJob(ctx, ownerID, spec)
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("create import job: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishImportJob(ctx, job.ID); err != nil {
			// The job stays pending and the worker's poller picks it up.
			slog.WarnContext(ctx, "Failed to publish import job, leaving it for the poller",
				"job_id", job.ID, "error", err)
		} else {
			slog.InfoContext(ctx, "Import job queued", "job_id", job.ID, "source", spec.Source)
		}
		return job, nil
	}

	return s.processor.Process(ctx, job.ID)
}

// Get returns the owner's job. Another owner's job is reported as missing.
func (s *ImportService) Get(ctx context.Context, ownerID, id string) (core.ImportJob, error) {
	job, err := s.jobs.GetImportJob(ctx, id)
	if err != nil {
		return core.ImportJob{}, err
	}
	if job.OwnerID != ownerID {
		return core.ImportJob{}, fmt.Errorf("import job %s: %w", id, core.ErrNotFound)
	}
	return job, nil
}
