package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/cache"
	"finboard/internal/core"
)

func fixedClock(y int, m time.Month, d int) Clock {
	return func() time.Time { return time.Date(y, m, d, 15, 4, 5, 0, time.UTC) }
}

func TestSummarize_Unauthenticated(t *testing.T) {
	store := newMemStore()
	svc := NewSummaryService(store, nil, "", fixedClock(2024, 3, 31))

	_, err := svc.Summarize(context.Background(), core.Scope{}, "", "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.Zero(t, store.readCount(), "store must not be read without an owner")
}

func TestSummarize_Composes(t *testing.T) {
	store := newMemStore()
	w := core.Window{Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 3)}
	store.totals[w] = core.Totals{Income: 100000, Expenses: -40000, Remaining: 60000}
	store.totals[w.Previous()] = core.Totals{Income: 80000, Expenses: -50000, Remaining: 30000}
	store.byCategory = []core.CategoryValue{
		{Name: "Rent", Value: 20000},
		{Name: "Food", Value: 10000},
		{Name: "Fuel", Value: 6000},
		{Name: "Books", Value: 3000},
		{Name: "Games", Value: 1000},
	}
	store.byDay = []core.DailyBucket{
		{Date: core.NewDate(2024, 3, 2), Income: 100000, Expenses: -40000},
	}

	svc := NewSummaryService(store, nil, core.UncategorizedExclude, fixedClock(2024, 3, 31))
	s, err := svc.Summarize(context.Background(), core.Scope{OwnerID: "alice"}, "2024-03-01", "2024-03-03")
	require.NoError(t, err)

	assert.Equal(t, w, s.Window)
	assert.Equal(t, core.NewDate(2024, 2, 27), s.PreviousWindow.Start)
	assert.Equal(t, core.NewDate(2024, 2, 29), s.PreviousWindow.End)
	assert.InDelta(t, 25.0, s.IncomeChange, 1e-9)
	assert.InDelta(t, -20.0, s.ExpensesChange, 1e-9)
	assert.InDelta(t, 100.0, s.RemainingChange, 1e-9)

	require.Len(t, s.Categories, 4)
	assert.Equal(t, core.CategoryValue{Name: core.OtherCategory, Value: 4000}, s.Categories[3])

	require.Len(t, s.Days, 3)
	assert.Equal(t, int64(0), s.Days[0].Income)
	assert.Equal(t, int64(100000), s.Days[1].Income)
	assert.Equal(t, "2024-03-03", s.Days[2].Date.String())
}

func TestSummarize_DefaultWindow(t *testing.T) {
	svc := NewSummaryService(newMemStore(), nil, "", fixedClock(2024, 3, 31))

	s, err := svc.Summarize(context.Background(), core.Scope{OwnerID: "alice"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", s.Window.Start.String())
	assert.Equal(t, "2024-03-31", s.Window.End.String())
	assert.Empty(t, s.Days)
	assert.NotNil(t, s.Days)
	assert.NotNil(t, s.Categories)
}

func TestSummarize_InvalidInput(t *testing.T) {
	store := newMemStore()
	svc := NewSummaryService(store, nil, "", fixedClock(2024, 3, 31))
	scope := core.Scope{OwnerID: "alice"}

	_, err := svc.Summarize(context.Background(), scope, "2024-13-01", "")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = svc.Summarize(context.Background(), scope, "2024-03-10", "2024-03-01")
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	assert.Zero(t, store.readCount())
}

func TestSummarize_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failReads = errors.New("disk on fire")
	svc := NewSummaryService(store, nil, "", fixedClock(2024, 3, 31))

	_, err := svc.Summarize(context.Background(), core.Scope{OwnerID: "alice"}, "", "")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestSummarize_CacheAndInvalidate(t *testing.T) {
	store := newMemStore()
	c := cache.NewLRUCache[core.Summary](10, time.Minute)
	svc := NewSummaryService(store, c, "", fixedClock(2024, 3, 31))
	ctx := context.Background()
	alice := core.Scope{OwnerID: "alice"}
	bob := core.Scope{OwnerID: "bob"}

	_, err := svc.Summarize(ctx, alice, "", "")
	require.NoError(t, err)
	_, err = svc.Summarize(ctx, bob, "", "")
	require.NoError(t, err)
	reads := store.readCount()

	_, err = svc.Summarize(ctx, alice, "", "")
	require.NoError(t, err)
	assert.Equal(t, reads, store.readCount(), "second read is served from cache")

	svc.Invalidate("alice")
	_, err = svc.Summarize(ctx, alice, "", "")
	require.NoError(t, err)
	assert.Equal(t, reads+4, store.readCount())

	_, err = svc.Summarize(ctx, bob, "", "")
	require.NoError(t, err)
	assert.Equal(t, reads+4, store.readCount(), "other owners keep their entries")
}

func TestSummarize_ScopesDoNotShareCache(t *testing.T) {
	store := newMemStore()
	c := cache.NewLRUCache[core.Summary](10, time.Minute)
	svc := NewSummaryService(store, c, "", fixedClock(2024, 3, 31))
	ctx := context.Background()

	_, err := svc.Summarize(ctx, core.Scope{OwnerID: "alice"}, "", "")
	require.NoError(t, err)
	_, err = svc.Summarize(ctx, core.Scope{OwnerID: "alice", AccountID: "acc-1"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, 8, store.readCount())
}
