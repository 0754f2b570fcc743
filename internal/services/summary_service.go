package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/core"
)

const summaryTimeout = 7 * time.Second

// SummaryService computes period summaries. The four reads behind a summary
// are independent and run concurrently.
type SummaryService struct {
	store  SummaryStore
	cache  cache.Cache[core.Summary]
	policy core.UncategorizedPolicy
	clock  Clock
}

// NewSummaryService creates the summary service. A nil clock means time.Now
// and an empty policy means UncategorizedExclude.
func NewSummaryService(store SummaryStore, c cache.Cache[core.Summary], policy core.UncategorizedPolicy, clock Clock) *SummaryService {
	if clock == nil {
		clock = time.Now
	}
	if policy == "" {
		policy = core.UncategorizedExclude
	}
	return &SummaryService{store: store, cache: c, policy: policy, clock: clock}
}

// ResolveWindow applies the default range relative to today.
func (s *SummaryService) ResolveWindow(from, to string) (core.Window, error) {
	return core.ResolveWindow(from, to, s.clock())
}

// Summarize returns the summary of scope over the window described by from and to.
func (s *SummaryService) Summarize(ctx context.Context, scope core.Scope, from, to string) (core.Summary, error) {
	if scope.OwnerID == "" {
		return core.Summary{}, core.ErrUnauthenticated
	}

	w, err := s.ResolveWindow(from, to)
	if err != nil {
		return core.Summary{}, err
	}

	key := s.cacheKey(scope, w)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Summary cache hit", "owner_id", scope.OwnerID, "window_start", w.Start.String())
			return cached, nil
		}
	}

	summary, err := s.aggregate(ctx, scope, w)
	if err != nil {
		return core.Summary{}, err
	}

	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

func (s *SummaryService) aggregate(ctx context.Context, scope core.Scope, w core.Window) (core.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	var (
		current, previous core.Totals
		categories        []core.CategoryValue
		days              []core.DailyBucket
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.store.Totals(gctx, scope, w)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.store.Totals(gctx, scope, w.Previous())
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.store.ExpensesByCategory(gctx, scope, w, s.policy)
		return err
	})
	g.Go(func() (err error) {
		days, err = s.store.ActivityByDay(gctx, scope, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("aggregate summary: %w", err)
	}

	slog.InfoContext(ctx, "Summary computed",
		"owner_id", scope.OwnerID,
		"account_id", scope.AccountID,
		"window_start", w.Start.String(),
		"window_end", w.End.String(),
		"active_days", len(days))

	return core.Compose(w, current, previous, categories, days), nil
}

// Invalidate drops every cached summary of the owner.
func (s *SummaryService) Invalidate(ownerID string) {
	if s.cache == nil || ownerID == "" {
		return
	}
	s.cache.DeletePrefix(ownerKeyPrefix(ownerID))
}

func (s *SummaryService) cacheKey(scope core.Scope, w core.Window) string {
	return strings.Join([]string{
		ownerKeyPrefix(scope.OwnerID) + scope.AccountID,
		w.Start.String(),
		w.End.String(),
		string(s.policy),
	}, "|")
}

func ownerKeyPrefix(ownerID string) string {
	return ownerID + "|"
}
