package http

import (
	"time"

	"finboard/internal/core"
)

// Amounts in responses are signed integers in minor units (cents).

type (
	periodResponse struct {
		From core.Date `json:"from"`
		To   core.Date `json:"to"`
	}

	categoryValueResponse struct {
		Name  string `json:"name"`
		Value int64  `json:"value"`
	}

	dayResponse struct {
		Date     core.Date `json:"date"`
		Income   int64     `json:"income"`
		Expenses int64     `json:"expenses"`
	}

	summaryResponse struct {
		RemainingAmount int64                   `json:"remainingAmount"`
		RemainingChange float64                 `json:"remainingChange"`
		IncomeAmount    int64                   `json:"incomeAmount"`
		IncomeChange    float64                 `json:"incomeChange"`
		ExpensesAmount  int64                   `json:"expensesAmount"`
		ExpenseChange   float64                 `json:"expenseChange"`
		Categories      []categoryValueResponse `json:"categories"`
		Days            []dayResponse           `json:"days"`
		Period          periodResponse          `json:"period"`
		PreviousPeriod  periodResponse          `json:"previousPeriod"`
	}

	accountResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	categoryResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	transactionResponse struct {
		ID         string    `json:"id"`
		AccountID  string    `json:"accountId"`
		Account    string    `json:"account"`
		CategoryID *string   `json:"categoryId"`
		Category   *string   `json:"category"`
		Amount     int64     `json:"amount"`
		Date       core.Date `json:"date"`
		Payee      string    `json:"payee"`
		Notes      string    `json:"notes,omitempty"`
	}

	importJobResponse struct {
		ID        string            `json:"id"`
		Source    core.ImportSource `json:"source"`
		AccountID string            `json:"accountId"`
		Status    core.JobStatus    `json:"status"`
		Imported  int               `json:"imported"`
		Skipped   int               `json:"skipped"`
		Error     string            `json:"error,omitempty"`
		CreatedAt time.Time         `json:"createdAt"`
		UpdatedAt time.Time         `json:"updatedAt"`
	}

	importQueuedResponse struct {
		JobID string `json:"jobId"`
	}
)

func newSummaryResponse(s core.Summary) summaryResponse {
	categories := make([]categoryValueResponse, 0, len(s.Categories))
	for _, c := range s.Categories {
		categories = append(categories, categoryValueResponse{Name: c.Name, Value: c.Value})
	}
	days := make([]dayResponse, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, dayResponse{Date: d.Date, Income: d.Income, Expenses: d.Expenses})
	}

	return summaryResponse{
		RemainingAmount: s.Current.Remaining,
		RemainingChange: s.RemainingChange,
		IncomeAmount:    s.Current.Income,
		IncomeChange:    s.IncomeChange,
		ExpensesAmount:  s.Current.Expenses,
		ExpenseChange:   s.ExpensesChange,
		Categories:      categories,
		Days:            days,
		Period:          periodResponse{From: s.Window.Start, To: s.Window.End},
		PreviousPeriod:  periodResponse{From: s.PreviousWindow.Start, To: s.PreviousWindow.End},
	}
}

func newAccountResponse(a core.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name}
}

func newAccountsResponse(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a))
	}
	return out
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name}
}

func newCategoriesResponse(categories []core.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, newCategoryResponse(c))
	}
	return out
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		Account:   t.AccountName,
		Amount:    t.Amount.Cents,
		Date:      t.Date,
		Payee:     t.Payee,
		Notes:     t.Notes,
	}
	if t.CategoryID != "" {
		id, name := t.CategoryID, t.CategoryName
		resp.CategoryID = &id
		resp.Category = &name
	}
	return resp
}

func newTransactionsResponse(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newImportJobResponse(j core.ImportJob) importJobResponse {
	return importJobResponse{
		ID:        j.ID,
		Source:    j.Spec.Source,
		AccountID: j.Spec.AccountID,
		Status:    j.Status,
		Imported:  j.Imported,
		Skipped:   j.Skipped,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
