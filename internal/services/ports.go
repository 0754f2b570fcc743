package services

import (
	"context"
	"time"

	"finboard/internal/core"
)

// Ports the services depend on. storage.SQLiteRepository implements all of them.
type (
	SummaryStore interface {
		Totals(ctx context.Context, scope core.Scope, w core.Window) (core.Totals, error)
		ExpensesByCategory(ctx context.Context, scope core.Scope, w core.Window, policy core.UncategorizedPolicy) ([]core.CategoryValue, error)
		ActivityByDay(ctx context.Context, scope core.Scope, w core.Window) ([]core.DailyBucket, error)
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, ownerID, name string) (core.Account, error)
		GetAccount(ctx context.Context, ownerID, id string) (core.Account, error)
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		RenameAccount(ctx context.Context, ownerID, id, name string) (core.Account, error)
		DeleteAccounts(ctx context.Context, ownerID string, ids []string) (int, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error)
		GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		RenameCategory(ctx context.Context, ownerID, id, name string) (core.Category, error)
		DeleteCategories(ctx context.Context, ownerID string, ids []string) (int, error)
	}

	TransactionStore interface {
		CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, scope core.Scope, w core.Window) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, ownerID string, t core.Transaction) error
		DeleteTransactions(ctx context.Context, ownerID string, ids []string) (int, error)
	}

	LedgerStore interface {
		AccountStore
		CategoryStore
		TransactionStore
	}

	ImportJobStore interface {
		CreateImportJob(ctx context.Context, ownerID string, spec core.ImportSpec) (core.ImportJob, error)
		GetImportJob(ctx context.Context, id string) (core.ImportJob, error)
		ListStaleImportJobs(ctx context.Context, minAge time.Duration, limit int) ([]core.ImportJob, error)
	}

	// JobPublisher hands an import job to the worker queue.
	JobPublisher interface {
		PublishImportJob(ctx context.Context, jobID string) error
	}

	// JobProcessor runs an import job to completion.
	JobProcessor interface {
		Process(ctx context.Context, jobID string) (core.ImportJob, error)
	}
)

// Clock returns the current instant in the zone "today" is measured in.
type Clock func() time.Time

// ZonedClock returns a clock reporting the current time in loc.
func ZonedClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}
