package storage

import (
	"context"

	"finboard/internal/core"
)

// scopeFilter is the predicate every aggregate shares: owner, optional
// account, and an inclusive date window. It expects the aliases t and a.
func scopeFilter(scope core.Scope, w core.Window) (string, []any) {
	where := "a.user_id = ? AND t.date >= ? AND t.date <= ?"
	args := []any{scope.OwnerID, w.Start.String(), w.End.String()}
	if scope.AccountID != "" {
		where += " AND t.account_id = ?"
		args = append(args, scope.AccountID)
	}
	return where, args
}

const scopedTransactions = `
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id`

const incomeExpenseColumns = `COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount END), 0),
       COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount END), 0)`

func (q *Queries) SumTotals(ctx context.Context, scope core.Scope, w core.Window) (core.Totals, error) {
	where, args := scopeFilter(scope, w)
	query := `SELECT ` + incomeExpenseColumns + `,
       COALESCE(SUM(t.amount), 0)` + scopedTransactions + `
WHERE ` + where

	var totals core.Totals
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&totals.Income, &totals.Expenses, &totals.Remaining)
	return totals, err
}

// SumExpensesByCategory groups expenses by category name, largest first.
func (q *Queries) SumExpensesByCategory(ctx context.Context, scope core.Scope, w core.Window, policy core.UncategorizedPolicy) ([]core.CategoryValue, error) {
	where, args := scopeFilter(scope, w)

	name := "c.name"
	join := "INNER JOIN categories c ON c.id = t.category_id"
	if policy == core.UncategorizedBucket {
		name = "COALESCE(c.name, '" + core.UncategorizedCategory + "')"
		join = "LEFT JOIN categories c ON c.id = t.category_id"
	}

	query := `SELECT ` + name + ` AS name, SUM(ABS(t.amount)) AS value` + scopedTransactions + `
` + join + `
WHERE ` + where + ` AND t.amount < 0
GROUP BY ` + name + `
ORDER BY value DESC, name ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.CategoryValue{}
	for rows.Next() {
		var cv core.CategoryValue
		if err := rows.Scan(&cv.Name, &cv.Value); err != nil {
			return nil, err
		}
		items = append(items, cv)
	}
	return items, rows.Err()
}

// SumByDay returns one row per day with at least one transaction, ascending.
func (q *Queries) SumByDay(ctx context.Context, scope core.Scope, w core.Window) ([]core.DailyBucket, error) {
	where, args := scopeFilter(scope, w)
	query := `SELECT t.date, ` + incomeExpenseColumns + scopedTransactions + `
WHERE ` + where + `
GROUP BY t.date
ORDER BY t.date ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.DailyBucket{}
	for rows.Next() {
		var (
			b    core.DailyBucket
			date string
		)
		if err := rows.Scan(&date, &b.Income, &b.Expenses); err != nil {
			return nil, err
		}
		if b.Date, err = core.ParseDate(date); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
