package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the ledger and import jobs in SQLite.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository migrates the database at dbPath, creating it if
// needed, and opens it with foreign keys enforced.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so every connection sees the schema
	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "version", version)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// Accounts

// CreateAccount stores a new account for ownerID.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, ownerID, name string) (core.Account, error) {
	a := core.Account{ID: uuid.NewString(), OwnerID: ownerID, Name: name}
	if err := r.queries.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "id", a.ID, "owner_id", ownerID)
	return a, nil
}

// GetAccount returns core.ErrNotFound when id is missing or owned by someone else.
func (r *SQLiteRepository) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, ownerID, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", notFound(err))
	}
	return a, nil
}

// ListAccounts returns the owner's accounts ordered by name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	items, err := r.queries.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return items, nil
}

// RenameAccount returns core.ErrNotFound when the owner has no such account.
func (r *SQLiteRepository) RenameAccount(ctx context.Context, ownerID, id, name string) (core.Account, error) {
	n, err := r.queries.RenameAccount(ctx, ownerID, id, name)
	if err != nil {
		return core.Account{}, fmt.Errorf("rename account: %w", err)
	}
	if n == 0 {
		return core.Account{}, fmt.Errorf("rename account: %w", core.ErrNotFound)
	}
	return core.Account{ID: id, OwnerID: ownerID, Name: name}, nil
}

// DeleteAccounts removes the owner's accounts with the given ids together
// with their transactions. Unknown ids are ignored.
func (r *SQLiteRepository) DeleteAccounts(ctx context.Context, ownerID string, ids []string) (int, error) {
	var deleted int64
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			n, err := q.DeleteAccount(ctx, ownerID, id)
			if err != nil {
				return fmt.Errorf("delete account %s: %w", id, err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Accounts deleted", "owner_id", ownerID, "count", deleted)
	return int(deleted), nil
}

// Categories

// CreateCategory stores a new category for ownerID.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	c := core.Category{ID: uuid.NewString(), OwnerID: ownerID, Name: name}
	if err := r.queries.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", c.ID, "owner_id", ownerID)
	return c, nil
}

// GetCategory returns core.ErrNotFound when id is missing or owned by someone else.
func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", notFound(err))
	}
	return c, nil
}

// ListCategories returns the owner's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	items, err := r.queries.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// RenameCategory returns core.ErrNotFound when the owner has no such category.
func (r *SQLiteRepository) RenameCategory(ctx context.Context, ownerID, id, name string) (core.Category, error) {
	n, err := r.queries.RenameCategory(ctx, ownerID, id, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("rename category: %w", err)
	}
	if n == 0 {
		return core.Category{}, fmt.Errorf("rename category: %w", core.ErrNotFound)
	}
	return core.Category{ID: id, OwnerID: ownerID, Name: name}, nil
}

// DeleteCategories removes the owner's categories. Their transactions stay
// and become uncategorized.
func (r *SQLiteRepository) DeleteCategories(ctx context.Context, ownerID string, ids []string) (int, error) {
	var deleted int64
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			n, err := q.DeleteCategory(ctx, ownerID, id)
			if err != nil {
				return fmt.Errorf("delete category %s: %w", id, err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Categories deleted", "owner_id", ownerID, "count", deleted)
	return int(deleted), nil
}

// Transactions

// CreateTransactions inserts all transactions atomically and returns them with ids assigned.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(txs))
	err := r.withTx(ctx, func(q *Queries) error {
		for i, t := range txs {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if err := q.CreateTransaction(ctx, t); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
			out[i] = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(out))
	return out, nil
}

// GetTransaction returns one transaction with its account and category names.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", notFound(err))
	}
	return t, nil
}

// ListTransactions returns the scoped transactions in w, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, scope core.Scope, w core.Window) ([]core.Transaction, error) {
	items, err := r.queries.ListTransactions(ctx, scope, w)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

// UpdateTransaction overwrites t in place. It fails with core.ErrNotFound
// unless t belongs to one of the owner's accounts.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, ownerID string, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, ownerID, t)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction: %w", core.ErrNotFound)
	}
	return nil
}

// DeleteTransactions removes the owner's transactions with the given ids and reports how many went.
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ownerID string, ids []string) (int, error) {
	n, err := r.queries.DeleteTransactions(ctx, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions deleted", "owner_id", ownerID, "count", n)
	return int(n), nil
}

// Aggregates

// Totals sums income and expenses in w.
func (r *SQLiteRepository) Totals(ctx context.Context, scope core.Scope, w core.Window) (core.Totals, error) {
	t, err := r.queries.SumTotals(ctx, scope, w)
	if err != nil {
		return core.Totals{}, fmt.Errorf("sum totals: %w", err)
	}
	return t, nil
}

// ExpensesByCategory returns expense magnitudes per category name, largest first.
func (r *SQLiteRepository) ExpensesByCategory(ctx context.Context, scope core.Scope, w core.Window, policy core.UncategorizedPolicy) ([]core.CategoryValue, error) {
	rows, err := r.queries.SumExpensesByCategory(ctx, scope, w, policy)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	return rows, nil
}

// ActivityByDay returns one bucket per day that had activity in w.
func (r *SQLiteRepository) ActivityByDay(ctx context.Context, scope core.Scope, w core.Window) ([]core.DailyBucket, error) {
	rows, err := r.queries.SumByDay(ctx, scope, w)
	if err != nil {
		return nil, fmt.Errorf("sum by day: %w", err)
	}
	return rows, nil
}

// Import jobs

// CreateImportJob stores a pending job for spec.
func (r *SQLiteRepository) CreateImportJob(ctx context.Context, ownerID string, spec core.ImportSpec) (core.ImportJob, error) {
	id := uuid.NewString()
	if err := r.queries.CreateImportJob(ctx, id, ownerID, spec); err != nil {
		return core.ImportJob{}, fmt.Errorf("create import job: %w", err)
	}
	return r.GetImportJob(ctx, id)
}

// GetImportJob looks a job up by id regardless of owner.
func (r *SQLiteRepository) GetImportJob(ctx context.Context, id string) (core.ImportJob, error) {
	job, err := r.queries.GetImportJob(ctx, id)
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("get import job: %w", notFound(err))
	}
	return job, nil
}

// ClaimImportJob moves a pending job to processing. It reports false when
// another worker got there first or the job already finished.
func (r *SQLiteRepository) ClaimImportJob(ctx context.Context, id string) (bool, error) {
	ok, err := r.queries.ClaimImportJob(ctx, id)
	if err != nil {
		return false, fmt.Errorf("claim import job: %w", err)
	}
	return ok, nil
}

// FinishImportJob records the outcome of a claimed job.
func (r *SQLiteRepository) FinishImportJob(ctx context.Context, id string, status core.JobStatus, imported, skipped int, errMsg string) error {
	if err := r.queries.FinishImportJob(ctx, id, status, imported, skipped, errMsg); err != nil {
		return fmt.Errorf("finish import job: %w", err)
	}
	return nil
}

// ListStaleImportJobs returns pending jobs older than minAge.
func (r *SQLiteRepository) ListStaleImportJobs(ctx context.Context, minAge time.Duration, limit int) ([]core.ImportJob, error) {
	jobs, err := r.queries.ListStaleImportJobs(ctx, time.Now().Add(-minAge), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale import jobs: %w", err)
	}
	return jobs, nil
}

// ResetStuckImportJobs returns jobs left in processing for longer than
// minAge to pending, so a crashed worker's jobs are picked up again.
func (r *SQLiteRepository) ResetStuckImportJobs(ctx context.Context, minAge time.Duration) (int, error) {
	n, err := r.queries.ResetStuckImportJobs(ctx, time.Now().Add(-minAge))
	if err != nil {
		return 0, fmt.Errorf("reset stuck import jobs: %w", err)
	}
	return n, nil
}
