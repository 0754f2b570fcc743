package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finboard/internal/core"
)

const createImportJob = `INSERT INTO import_jobs (id, user_id, spec, status) VALUES (?, ?, ?, 'pending')`

func (q *Queries) CreateImportJob(ctx context.Context, id, ownerID string, spec core.ImportSpec) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal import spec: %w", err)
	}
	_, err = q.db.ExecContext(ctx, createImportJob, id, ownerID, string(raw))
	return err
}

const importJobColumns = `SELECT id, user_id, spec, status, imported, skipped, error, created_at, updated_at FROM import_jobs`

func (q *Queries) GetImportJob(ctx context.Context, id string) (core.ImportJob, error) {
	return scanImportJob(q.db.QueryRowContext(ctx, importJobColumns+` WHERE id = ?`, id))
}

// ListStaleImportJobs returns pending jobs created before cutoff, oldest first.
func (q *Queries) ListStaleImportJobs(ctx context.Context, cutoff time.Time, limit int) ([]core.ImportJob, error) {
	rows, err := q.db.QueryContext(ctx, importJobColumns+`
WHERE status = 'pending' AND created_at <= ?
ORDER BY created_at ASC
LIMIT ?`, cutoff.UTC().Format(sqliteTimestamp), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.ImportJob{}
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

const claimImportJob = `UPDATE import_jobs SET status = 'processing', updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending'`

// ClaimImportJob moves a pending job to processing. It reports false when
// another worker got there first or the job is already finished.
func (q *Queries) ClaimImportJob(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx, claimImportJob, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const resetStuckImportJobs = `UPDATE import_jobs SET status = 'pending', updated_at = CURRENT_TIMESTAMP
WHERE status = 'processing' AND updated_at <= ?`

func (q *Queries) ResetStuckImportJobs(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := q.db.ExecContext(ctx, resetStuckImportJobs, cutoff.UTC().Format(sqliteTimestamp))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

const finishImportJob = `UPDATE import_jobs
SET status = ?, imported = ?, skipped = ?, error = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) FinishImportJob(ctx context.Context, id string, status core.JobStatus, imported, skipped int, errMsg string) error {
	_, err := q.db.ExecContext(ctx, finishImportJob, string(status), imported, skipped, errMsg, id)
	return err
}

const sqliteTimestamp = "2006-01-02 15:04:05"

func scanImportJob(row rowScanner) (core.ImportJob, error) {
	var (
		job                  core.ImportJob
		spec, status         string
		createdAt, updatedAt string
	)
	if err := row.Scan(&job.ID, &job.OwnerID, &spec, &status, &job.Imported, &job.Skipped, &job.Error, &createdAt, &updatedAt); err != nil {
		return core.ImportJob{}, err
	}
	if err := json.Unmarshal([]byte(spec), &job.Spec); err != nil {
		return core.ImportJob{}, fmt.Errorf("unmarshal import spec: %w", err)
	}
	job.Status = core.JobStatus(status)
	job.CreatedAt = parseTimestamp(createdAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	return job, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{sqliteTimestamp, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
