package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finboard/internal/confirm"
	"finboard/internal/core"
)

// Invalidator drops derived data cached for an owner after a write.
type Invalidator interface {
	Invalidate(ownerID string)
}

// DeleteResult is what a resolved delete confirmation returns.
type DeleteResult struct {
	Deleted   int  `json:"deleted"`
	Cancelled bool `json:"cancelled,omitempty"`
}

// TransactionInput is a transaction as a caller submits it, before parsing.
type TransactionInput struct {
	AccountID  string `json:"accountId"`
	CategoryID string `json:"categoryId"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Payee      string `json:"payee"`
	Notes      string `json:"notes"`
}

// LedgerService owns every write to accounts, categories and transactions.
type LedgerService struct {
	store       LedgerStore
	confirms    *confirm.Registry
	invalidator Invalidator
}

// NewLedgerService creates the ledger service. When invalidator is set,
// every write passes it the owner it touched.
func NewLedgerService(store LedgerStore, confirms *confirm.Registry, invalidator Invalidator) *LedgerService {
	return &LedgerService{store: store, confirms: confirms, invalidator: invalidator}
}

func (s *LedgerService) invalidate(ownerID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ownerID)
	}
}

// Accounts

// ListAccounts returns the owner's accounts by name.
func (s *LedgerService) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, ownerID)
}

func (s *LedgerService) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, ownerID, id)
}

// CreateAccount adds an account with a trimmed, non-empty name.
func (s *LedgerService) CreateAccount(ctx context.Context, ownerID, name string) (core.Account, error) {
	a := core.Account{OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, ownerID, a.Name)
}

// RenameAccount changes an account name.
func (s *LedgerService) RenameAccount(ctx context.Context, ownerID, id, name string) (core.Account, error) {
	a := core.Account{ID: id, OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.RenameAccount(ctx, ownerID, id, a.Name)
}

// DeleteAccount removes an account and its transactions.
func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, id string) error {
	n, err := s.store.DeleteAccounts(ctx, ownerID, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete account: %w", core.ErrNotFound)
	}
	s.invalidate(ownerID)
	return nil
}

// Categories

// ListCategories returns the owner's categories by name.
func (s *LedgerService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.ListCategories(ctx, ownerID)
}

func (s *LedgerService) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	return s.store.GetCategory(ctx, ownerID, id)
}

// CreateCategory adds a category with a trimmed, non-empty name.
func (s *LedgerService) CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	c := core.Category{OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, ownerID, c.Name)
}

func (s *LedgerService) RenameCategory(ctx context.Context, ownerID, id, name string) (core.Category, error) {
	c := core.Category{ID: id, OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	renamed, err := s.store.RenameCategory(ctx, ownerID, id, c.Name)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(ownerID)
	return renamed, nil
}

// DeleteCategory removes a category. Its transactions become uncategorized.
func (s *LedgerService) DeleteCategory(ctx context.Context, ownerID, id string) error {
	n, err := s.store.DeleteCategories(ctx, ownerID, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete category: %w", core.ErrNotFound)
	}
	s.invalidate(ownerID)
	return nil
}

// Transactions

// ListTransactions returns the scoped transactions in w, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, scope core.Scope, w core.Window) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, scope, w)
}

func (s *LedgerService) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, ownerID, id)
}

// CreateTransaction validates in and records it. The account and category
// must belong to ownerID.
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	created, err := s.CreateTransactions(ctx, ownerID, []TransactionInput{in})
	if err != nil {
		return core.Transaction{}, err
	}
	return created[0], nil
}

// CreateTransactions validates every input before inserting any of them.
func (s *LedgerService) CreateTransactions(ctx context.Context, ownerID string, inputs []TransactionInput) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(inputs))
	for i, in := range inputs {
		t, err := s.parse(ctx, ownerID, in)
		if err != nil {
			if len(inputs) > 1 {
				return nil, fmt.Errorf("transaction %d: %w", i, err)
			}
			return nil, err
		}
		txs = append(txs, t)
	}
	if len(txs) == 0 {
		return []core.Transaction{}, nil
	}

	created, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}
	s.invalidate(ownerID)
	return created, nil
}

// UpdateTransaction replaces every field of an existing transaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, ownerID, id string, in TransactionInput) (core.Transaction, error) {
	t, err := s.parse(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id
	if err := s.store.UpdateTransaction(ctx, ownerID, t); err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ownerID)
	return s.store.GetTransaction(ctx, ownerID, id)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	n, err := s.store.DeleteTransactions(ctx, ownerID, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete transaction: %w", core.ErrNotFound)
	}
	s.invalidate(ownerID)
	return nil
}

// parse turns input into a transaction and checks the owner holds the
// referenced account and category.
func (s *LedgerService) parse(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		AccountID:  strings.TrimSpace(in.AccountID),
		CategoryID: strings.TrimSpace(in.CategoryID),
		Amount:     core.Money{Cents: amount},
		Date:       date,
		Payee:      strings.TrimSpace(in.Payee),
		Notes:      strings.TrimSpace(in.Notes),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := s.store.GetAccount(ctx, ownerID, t.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, fmt.Errorf("account %s: %w", t.AccountID, core.ErrMissingAccount)
		}
		return core.Transaction{}, err
	}
	t.AccountName = account.Name

	if t.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, ownerID, t.CategoryID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Transaction{}, fmt.Errorf("category %s: %w", t.CategoryID, core.ErrUnknownCategory)
			}
			return core.Transaction{}, err
		}
		t.CategoryName = category.Name
	}
	return t, nil
}

// Bulk deletes go through a confirmation prompt.

// RequestDeleteTransactions asks the owner to confirm deleting ids.
func (s *LedgerService) RequestDeleteTransactions(ctx context.Context, ownerID string, ids []string) (confirm.Prompt, error) {
	return s.requestDelete(ctx, ownerID, ids, "transaction", s.store.DeleteTransactions)
}

func (s *LedgerService) RequestDeleteAccounts(ctx context.Context, ownerID string, ids []string) (confirm.Prompt, error) {
	return s.requestDelete(ctx, ownerID, ids, "account", s.store.DeleteAccounts)
}

func (s *LedgerService) RequestDeleteCategories(ctx context.Context, ownerID string, ids []string) (confirm.Prompt, error) {
	return s.requestDelete(ctx, ownerID, ids, "category", s.store.DeleteCategories)
}

type bulkDeleter func(ctx context.Context, ownerID string, ids []string) (int, error)

func (s *LedgerService) requestDelete(ctx context.Context, ownerID string, ids []string, noun string, del bulkDeleter) (confirm.Prompt, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return confirm.Prompt{}, fmt.Errorf("%w: no ids given", core.ErrNotFound)
	}

	message := fmt.Sprintf("You are about to delete %d %s", len(ids), plural(noun, len(ids)))
	return s.confirms.Ask(ctx, ownerID, "Are you sure?", message, func(ctx context.Context, ok bool) (any, error) {
		if !ok {
			return DeleteResult{Cancelled: true}, nil
		}
		n, err := del(ctx, ownerID, ids)
		if err != nil {
			return nil, err
		}
		s.invalidate(ownerID)
		slog.InfoContext(ctx, "Bulk delete confirmed", "owner_id", ownerID, "kind", noun, "deleted", n)
		return DeleteResult{Deleted: n}, nil
	})
}

// Confirm answers a pending prompt of the owner.
func (s *LedgerService) Confirm(ctx context.Context, ownerID, id string, ok bool) (any, error) {
	return s.confirms.Resolve(ctx, ownerID, id, ok)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func plural(noun string, n int) string {
	if n == 1 {
		return noun
	}
	if strings.HasSuffix(noun, "y") {
		return strings.TrimSuffix(noun, "y") + "ies"
	}
	return noun + "s"
}
