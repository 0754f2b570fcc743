package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finboard/internal/core"
)

// memStore is an in-memory stand-in for the SQLite repository.
type memStore struct {
	mu         sync.Mutex
	seq        int
	accounts   map[string]core.Account
	categories map[string]core.Category
	txs        map[string]core.Transaction
	jobs       map[string]core.ImportJob

	totals     map[core.Window]core.Totals
	byCategory []core.CategoryValue
	byDay      []core.DailyBucket
	reads      int
	failReads  error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:   make(map[string]core.Account),
		categories: make(map[string]core.Category),
		txs:        make(map[string]core.Transaction),
		jobs:       make(map[string]core.ImportJob),
		totals:     make(map[core.Window]core.Totals),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) Totals(_ context.Context, _ core.Scope, w core.Window) (core.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.totals[w], m.failReads
}

func (m *memStore) ExpensesByCategory(context.Context, core.Scope, core.Window, core.UncategorizedPolicy) ([]core.CategoryValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.byCategory, m.failReads
}

func (m *memStore) ActivityByDay(context.Context, core.Scope, core.Window) ([]core.DailyBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.byDay, m.failReads
}

func (m *memStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *memStore) CreateAccount(_ context.Context, ownerID, name string) (core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := core.Account{ID: m.nextID("acc"), OwnerID: ownerID, Name: name}
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memStore) GetAccount(_ context.Context, ownerID, id string) (core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Account{}
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) RenameAccount(_ context.Context, ownerID, id, name string) (core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, core.ErrNotFound
	}
	a.Name = name
	m.accounts[id] = a
	return a, nil
}

func (m *memStore) DeleteAccounts(_ context.Context, ownerID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok && a.OwnerID == ownerID {
			delete(m.accounts, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateCategory(_ context.Context, ownerID, name string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := core.Category{ID: m.nextID("cat"), OwnerID: ownerID, Name: name}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) GetCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Category{}
	for _, c := range m.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) RenameCategory(_ context.Context, ownerID, id, name string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, core.ErrNotFound
	}
	c.Name = name
	m.categories[id] = c
	return c, nil
}

func (m *memStore) DeleteCategories(_ context.Context, ownerID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c, ok := m.categories[id]; ok && c.OwnerID == ownerID {
			delete(m.categories, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		t.ID = m.nextID("tx")
		m.txs[t.ID] = t
		out[i] = t
	}
	return out, nil
}

func (m *memStore) owns(ownerID string, t core.Transaction) bool {
	a, ok := m.accounts[t.AccountID]
	return ok && a.OwnerID == ownerID
}

func (m *memStore) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok || !m.owns(ownerID, t) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTransactions(_ context.Context, scope core.Scope, w core.Window) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range m.txs {
		if m.owns(scope.OwnerID, t) && w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, ownerID string, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.txs[t.ID]
	if !ok || !m.owns(ownerID, old) {
		return core.ErrNotFound
	}
	m.txs[t.ID] = t
	return nil
}

func (m *memStore) DeleteTransactions(_ context.Context, ownerID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if t, ok := m.txs[id]; ok && m.owns(ownerID, t) {
			delete(m.txs, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateImportJob(_ context.Context, ownerID string, spec core.ImportSpec) (core.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := core.ImportJob{ID: m.nextID("job"), OwnerID: ownerID, Spec: spec, Status: core.JobPending}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memStore) GetImportJob(_ context.Context, id string) (core.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return core.ImportJob{}, core.ErrNotFound
	}
	return job, nil
}

func (m *memStore) ListStaleImportJobs(context.Context, time.Duration, int) ([]core.ImportJob, error) {
	return nil, nil
}

type countingInvalidator struct{ owners []string }

func (c *countingInvalidator) Invalidate(ownerID string) { c.owners = append(c.owners, ownerID) }

type stubPublisher struct {
	published []string
	err       error
}

func (p *stubPublisher) PublishImportJob(_ context.Context, jobID string) error {
	p.published = append(p.published, jobID)
	return p.err
}

type stubProcessor struct {
	store *memStore
	ran   []string
}

func (p *stubProcessor) Process(ctx context.Context, jobID string) (core.ImportJob, error) {
	p.ran = append(p.ran, jobID)
	job, err := p.store.GetImportJob(ctx, jobID)
	if err != nil {
		return core.ImportJob{}, err
	}
	job.Status = core.JobCompleted
	return job, nil
}
