package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func csvSpec(accountID string) core.ImportSpec {
	return core.ImportSpec{
		Source:    core.SourceCSV,
		AccountID: accountID,
		CSV:       "2024-03-01,Bakery,-3.20\n",
		Mapping:   core.ColumnMapping{Date: 0, Payee: 1, Amount: 2},
	}
}

func TestImportService_SubmitInline(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	acc, _ := store.CreateAccount(ctx, "alice", "Checking")
	proc := &stubProcessor{store: store}
	svc := NewImportService(store, store, nil, proc)

	assert.False(t, svc.Async())
	job, err := svc.Submit(ctx, "alice", csvSpec(acc.ID))
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, []string{job.ID}, proc.ran)
}

func TestImportService_SubmitQueued(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	acc, _ := store.CreateAccount(ctx, "alice", "Checking")
	pub := &stubPublisher{}
	proc := &stubProcessor{store: store}
	svc := NewImportService(store, store, pub, proc)

	job, err := svc.Submit(ctx, "alice", csvSpec(acc.ID))
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, job.Status)
	assert.Equal(t, []string{job.ID}, pub.published)
	assert.Empty(t, proc.ran)

	t.Run("publish failure leaves the job pending", func(t *testing.T) {
		pub.err = errors.New("broker down")
		job, err := svc.Submit(ctx, "alice", csvSpec(acc.ID))
		require.NoError(t, err)
		assert.Equal(t, core.JobPending, job.Status)
	})
}

func TestImportService_SubmitRejects(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	acc, _ := store.CreateAccount(ctx, "alice", "Checking")
	svc := NewImportService(store, store, nil, &stubProcessor{store: store})

	_, err := svc.Submit(ctx, "", csvSpec(acc.ID))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = svc.Submit(ctx, "bob", csvSpec(acc.ID))
	assert.ErrorIs(t, err, core.ErrMissingAccount)

	spec := csvSpec(acc.ID)
	spec.Mapping = core.ColumnMapping{Date: 0, Payee: 0, Amount: 2}
	_, err = svc.Submit(ctx, "alice", spec)
	assert.ErrorIs(t, err, core.ErrInvalidMapping)

	spec = csvSpec(acc.ID)
	spec.Source = "ftp"
	_, err = svc.Submit(ctx, "alice", spec)
	assert.ErrorIs(t, err, core.ErrInvalidSource)

	assert.Empty(t, store.jobs)
}

func TestImportService_GetChecksOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	job, _ := store.CreateImportJob(ctx, "alice", csvSpec("acc"))
	svc := NewImportService(store, store, nil, nil)

	got, err := svc.Get(ctx, "alice", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Get(ctx, "bob", job.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Get(ctx, "alice", "job-missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
