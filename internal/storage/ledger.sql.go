package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"finboard/internal/core"
)

const createAccount = `INSERT INTO accounts (id, user_id, name) VALUES (?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, createAccount, a.ID, a.OwnerID, a.Name)
	return err
}

const getAccount = `SELECT id, user_id, name FROM accounts WHERE id = ? AND user_id = ?`

func (q *Queries) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	var a core.Account
	err := q.db.QueryRowContext(ctx, getAccount, id, ownerID).Scan(&a.ID, &a.OwnerID, &a.Name)
	return a, err
}

const listAccounts = `SELECT id, user_id, name FROM accounts WHERE user_id = ? ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Account{}
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const renameAccount = `UPDATE accounts SET name = ? WHERE id = ? AND user_id = ?`

func (q *Queries) RenameAccount(ctx context.Context, ownerID, id, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, renameAccount, name, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccountTransactions = `DELETE FROM transactions WHERE account_id = ?`

const deleteAccount = `DELETE FROM accounts WHERE id = ? AND user_id = ?`

// DeleteAccount removes an account and its transactions. Callers run it inside a tx.
func (q *Queries) DeleteAccount(ctx context.Context, ownerID, id string) (int64, error) {
	if _, err := q.GetAccount(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	if _, err := q.db.ExecContext(ctx, deleteAccountTransactions, id); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteAccount, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createCategory = `INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, c.ID, c.OwnerID, c.Name)
	return err
}

const getCategory = `SELECT id, user_id, name FROM categories WHERE id = ? AND user_id = ?`

func (q *Queries) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, getCategory, id, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name)
	return c, err
}

const listCategories = `SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const renameCategory = `UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`

func (q *Queries) RenameCategory(ctx context.Context, ownerID, id, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, renameCategory, name, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const detachCategory = `UPDATE transactions SET category_id = NULL WHERE category_id = ?`

const deleteCategory = `DELETE FROM categories WHERE id = ? AND user_id = ?`

// DeleteCategory removes a category and leaves its transactions uncategorized.
func (q *Queries) DeleteCategory(ctx context.Context, ownerID, id string) (int64, error) {
	if _, err := q.GetCategory(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	if _, err := q.db.ExecContext(ctx, detachCategory, id); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTransaction = `INSERT INTO transactions (id, account_id, category_id, amount, date, payee, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.AccountID, nullString(t.CategoryID), t.Amount.Cents, t.Date.String(), t.Payee, t.Notes)
	return err
}

const transactionColumns = `SELECT t.id, t.account_id, COALESCE(t.category_id, ''), t.amount, t.date, t.payee, t.notes,
       a.name, COALESCE(c.name, '')
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id`

const getTransaction = transactionColumns + `
WHERE t.id = ? AND a.user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, ownerID))
}

// ListTransactions returns the scoped window newest first.
func (q *Queries) ListTransactions(ctx context.Context, scope core.Scope, w core.Window) ([]core.Transaction, error) {
	where, args := scopeFilter(scope, w)
	rows, err := q.db.QueryContext(ctx, transactionColumns+`
WHERE `+where+`
ORDER BY t.date DESC, t.created_at DESC, t.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTransaction = `UPDATE transactions
SET account_id = ?, category_id = ?, amount = ?, date = ?, payee = ?, notes = ?
WHERE id = ? AND account_id IN (SELECT id FROM accounts WHERE user_id = ?)`

func (q *Queries) UpdateTransaction(ctx context.Context, ownerID string, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.AccountID, nullString(t.CategoryID), t.Amount.Cents, t.Date.String(), t.Payee, t.Notes, t.ID, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTransactions removes the given ids that belong to the owner.
func (q *Queries) DeleteTransactions(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, ownerID)
	query := `DELETE FROM transactions WHERE id IN (` + placeholders(len(ids)) + `)
AND account_id IN (SELECT id FROM accounts WHERE user_id = ?)`
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.CategoryID, &t.Amount.Cents, &date, &t.Payee, &t.Notes,
		&t.AccountName, &t.CategoryName)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
