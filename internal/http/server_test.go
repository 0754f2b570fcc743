package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/cache"
	"finboard/internal/confirm"
	"finboard/internal/core"
	"finboard/internal/importer"
	"finboard/internal/middleware/auth"
	"finboard/internal/services"
	"finboard/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// countingStore counts summary reads so tests can prove a request never
// reached the store.
type countingStore struct {
	services.SummaryStore
	reads atomic.Int64
}

func (c *countingStore) Totals(ctx context.Context, scope core.Scope, w core.Window) (core.Totals, error) {
	c.reads.Add(1)
	return c.SummaryStore.Totals(ctx, scope, w)
}

func (c *countingStore) ExpensesByCategory(ctx context.Context, scope core.Scope, w core.Window, p core.UncategorizedPolicy) ([]core.CategoryValue, error) {
	c.reads.Add(1)
	return c.SummaryStore.ExpensesByCategory(ctx, scope, w, p)
}

func (c *countingStore) ActivityByDay(ctx context.Context, scope core.Scope, w core.Window) ([]core.DailyBucket, error) {
	c.reads.Add(1)
	return c.SummaryStore.ActivityByDay(ctx, scope, w)
}

type stubPublisher struct {
	published []string
}

func (p *stubPublisher) PublishImportJob(ctx context.Context, jobID string) error {
	p.published = append(p.published, jobID)
	return nil
}

type harness struct {
	t      *testing.T
	srv    *Server
	repo   *storage.SQLiteRepository
	store  *countingStore
	tokens *auth.Authenticator
}

type harnessOption func(*Config, *services.JobPublisher)

func withPublisher(p services.JobPublisher) harnessOption {
	return func(_ *Config, pub *services.JobPublisher) { *pub = p }
}

func withRateLimit(rps, burst int) harnessOption {
	return func(cfg *Config, _ *services.JobPublisher) {
		cfg.RateLimitRPS = rps
		cfg.RateLimitBurst = burst
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cfg := Config{
		Addr:           ":0",
		JWTSecret:      testSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	var publisher services.JobPublisher
	for _, opt := range opts {
		opt(&cfg, &publisher)
	}

	store := &countingStore{SummaryStore: repo}
	summaryCache := cache.NewLRUCache[core.Summary](100, time.Minute)
	manager := cache.NewManager()
	manager.Register("summary", summaryCache)

	today := func() time.Time { return time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC) }
	summary := services.NewSummaryService(store, summaryCache, core.UncategorizedExclude, today)
	ledger := services.NewLedgerService(repo, confirm.NewRegistry(time.Minute), summary)
	processor := importer.NewProcessor(repo, nil, summary.Invalidate)
	imports := services.NewImportService(repo, repo, publisher, processor)

	srv := NewServer(cfg, Deps{
		Summary: summary,
		Ledger:  ledger,
		Imports: imports,
		DB:      repo,
		Cache:   manager,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &harness{
		t:      t,
		srv:    srv,
		repo:   repo,
		store:  store,
		tokens: auth.NewAuthenticator(testSecret, ""),
	}
}

// do sends a request as owner; an empty owner sends no token.
func (h *harness) do(method, path, owner, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		token, err := h.tokens.Issue(owner, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// data decodes the {"data": ...} envelope of rec into dst.
func data(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst), string(env.Data))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func (h *harness) createAccount(owner, name string) accountResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/accounts", owner, `{"name":"`+name+`"}`)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var a accountResponse
	data(h.t, rec, &a)
	return a
}

func (h *harness) createCategory(owner, name string) categoryResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/categories", owner, `{"name":"`+name+`"}`)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var c categoryResponse
	data(h.t, rec, &c)
	return c
}

func (h *harness) createTransaction(owner string, in services.TransactionInput) transactionResponse {
	h.t.Helper()
	body, err := json.Marshal(in)
	require.NoError(h.t, err)
	rec := h.do(http.MethodPost, "/api/transactions", owner, string(body))
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx transactionResponse
	data(h.t, rec, &tx)
	return tx
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = h.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	require.NoError(t, h.repo.Close())
	rec = h.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not_ready"`)
}

func TestMetrics(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/healthz", "", "")

	rec := h.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total 2")
	assert.Contains(t, rec.Body.String(), "cache_entries 0")
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestUnauthenticatedNeverTouchesStore(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{
		"/api/summary",
		"/api/summary?from=2024-03-01&to=2024-03-31",
		"/api/transactions",
		"/api/accounts",
	} {
		rec := h.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
	}
	assert.Zero(t, h.store.reads.Load())
}

func TestSummaryEndpoint(t *testing.T) {
	h := newHarness(t)
	checking := h.createAccount("alice", "Checking")
	savings := h.createAccount("alice", "Savings")
	food := h.createCategory("alice", "Food")
	housing := h.createCategory("alice", "Housing")

	h.createTransaction("alice", services.TransactionInput{AccountID: checking.ID, Amount: "2500.00", Date: "2024-03-01", Payee: "Employer"})
	h.createTransaction("alice", services.TransactionInput{AccountID: checking.ID, CategoryID: food.ID, Amount: "-50", Date: "2024-03-02", Payee: "Market"})
	h.createTransaction("alice", services.TransactionInput{AccountID: checking.ID, CategoryID: housing.ID, Amount: "-1000,00", Date: "2024-03-05", Payee: "Landlord"})
	h.createTransaction("alice", services.TransactionInput{AccountID: savings.ID, Amount: "100", Date: "2024-02-20", Payee: "Interest"})
	h.createTransaction("bob", services.TransactionInput{AccountID: h.createAccount("bob", "Other").ID, Amount: "999", Date: "2024-03-03", Payee: "Not Alice"})

	t.Run("explicit window", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/summary?from=2024-03-01&to=2024-03-31", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s summaryResponse
		data(t, rec, &s)
		assert.Equal(t, int64(250000), s.IncomeAmount)
		assert.Equal(t, int64(-105000), s.ExpensesAmount)
		assert.Equal(t, int64(145000), s.RemainingAmount)
		assert.Equal(t, float64(100), s.ExpenseChange)
		assert.InDelta(t, 2400.0, s.IncomeChange, 0.001)
		assert.Equal(t, []categoryValueResponse{{Name: "Housing", Value: 100000}, {Name: "Food", Value: 5000}}, s.Categories)
		require.Len(t, s.Days, 31)
		assert.Equal(t, "2024-03-01", s.Days[0].Date.String())
		assert.Equal(t, int64(250000), s.Days[0].Income)
		assert.Zero(t, s.Days[2].Income+s.Days[2].Expenses)
		assert.Equal(t, "2024-01-30", s.PreviousPeriod.From.String())
		assert.Equal(t, "2024-02-29", s.PreviousPeriod.To.String())
	})

	t.Run("default window is the trailing thirty days", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/summary", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var s summaryResponse
		data(t, rec, &s)
		assert.Equal(t, "2024-03-01", s.Period.From.String())
		assert.Equal(t, "2024-03-31", s.Period.To.String())
	})

	t.Run("account scope", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/summary?from=2024-02-01&to=2024-02-29&accountId="+savings.ID, "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var s summaryResponse
		data(t, rec, &s)
		assert.Equal(t, int64(10000), s.RemainingAmount)
		assert.Empty(t, s.Categories)
		assert.Len(t, s.Days, 29)
	})

	t.Run("no activity gives an empty series", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/summary?from=2023-01-01&to=2023-01-31", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"days":[]`)
		assert.Contains(t, rec.Body.String(), `"categories":[]`)
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, q := range []string{"from=2024-13-01", "to=yesterday", "from=2024-03-31&to=2024-03-01", "from=0001-01-01&to=9999-12-31"} {
			rec := h.do(http.MethodGet, "/api/summary?"+q, "alice", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
			assert.Equal(t, "validation_failed", errorCode(t, rec))
		}
	})

	t.Run("writes invalidate the cached summary", func(t *testing.T) {
		path := "/api/summary?from=2024-03-01&to=2024-03-31"
		h.do(http.MethodGet, path, "alice", "")
		before := h.store.reads.Load()
		h.do(http.MethodGet, path, "alice", "")
		assert.Equal(t, before, h.store.reads.Load(), "second read is served from cache")

		h.createTransaction("alice", services.TransactionInput{AccountID: checking.ID, Amount: "-1", Date: "2024-03-10", Payee: "Coffee"})

		rec := h.do(http.MethodGet, path, "alice", "")
		var s summaryResponse
		data(t, rec, &s)
		assert.Equal(t, int64(-105100), s.ExpensesAmount)
		assert.Greater(t, h.store.reads.Load(), before)
	})
}

func TestAccountLifecycle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/accounts", "alice", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/accounts", "alice", `{"name":"Cash","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	acc := h.createAccount("alice", "Cash")

	rec = h.do(http.MethodGet, "/api/accounts/"+acc.ID, "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/accounts/"+acc.ID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "other owners cannot see the account")

	rec = h.do(http.MethodPatch, "/api/accounts/"+acc.ID, "alice", `{"name":"Wallet"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var renamed accountResponse
	data(t, rec, &renamed)
	assert.Equal(t, "Wallet", renamed.Name)

	rec = h.do(http.MethodGet, "/api/accounts", "alice", "")
	var list []accountResponse
	data(t, rec, &list)
	assert.Equal(t, []accountResponse{{ID: acc.ID, Name: "Wallet"}}, list)

	rec = h.do(http.MethodDelete, "/api/accounts/"+acc.ID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodDelete, "/api/accounts/"+acc.ID, "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryDeleteKeepsTransactions(t *testing.T) {
	h := newHarness(t)
	acc := h.createAccount("alice", "Checking")
	cat := h.createCategory("alice", "Food")
	tx := h.createTransaction("alice", services.TransactionInput{AccountID: acc.ID, CategoryID: cat.ID, Amount: "-5", Date: "2024-03-02", Payee: "Bakery"})
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Food", *tx.Category)

	rec := h.do(http.MethodDelete, "/api/categories/"+cat.ID, "alice", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/transactions/"+tx.ID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got transactionResponse
	data(t, rec, &got)
	assert.Nil(t, got.CategoryID)
	assert.Contains(t, rec.Body.String(), `"categoryId":null`)
}

func TestTransactions(t *testing.T) {
	h := newHarness(t)
	acc := h.createAccount("alice", "Checking")
	bobAcc := h.createAccount("bob", "Bob's")

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"bad amount", `{"accountId":"` + acc.ID + `","amount":"12x","date":"2024-03-01","payee":"A"}`},
			{"bad date", `{"accountId":"` + acc.ID + `","amount":"1","date":"01/03/2024","payee":"A"}`},
			{"missing payee", `{"accountId":"` + acc.ID + `","amount":"1","date":"2024-03-01"}`},
			{"missing account", `{"amount":"1","date":"2024-03-01","payee":"A"}`},
			{"another owner's account", `{"accountId":"` + bobAcc.ID + `","amount":"1","date":"2024-03-01","payee":"A"}`},
			{"empty body", ``},
			{"two values", `{} {}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := h.do(http.MethodPost, "/api/transactions", "alice", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				assert.Equal(t, "validation_failed", errorCode(t, rec))
			})
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/transactions", "alice",
			`{"accountId":"`+acc.ID+`","categoryId":"nope","amount":"1","date":"2024-03-01","payee":"A"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", errorCode(t, rec))
	})

	tx := h.createTransaction("alice", services.TransactionInput{AccountID: acc.ID, Amount: "-12.50", Date: "2024-03-03", Payee: " Cafe ", Notes: "lunch"})
	assert.Equal(t, int64(-1250), tx.Amount)
	assert.Equal(t, "Cafe", tx.Payee)
	assert.Equal(t, "Checking", tx.Account)

	t.Run("update", func(t *testing.T) {
		rec := h.do(http.MethodPatch, "/api/transactions/"+tx.ID, "alice",
			`{"accountId":"`+acc.ID+`","amount":"-13","date":"2024-03-04","payee":"Cafe"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got transactionResponse
		data(t, rec, &got)
		assert.Equal(t, int64(-1300), got.Amount)
		assert.Equal(t, "2024-03-04", got.Date.String())

		rec = h.do(http.MethodPatch, "/api/transactions/"+tx.ID, "bob",
			`{"accountId":"`+bobAcc.ID+`","amount":"-13","date":"2024-03-04","payee":"Cafe"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bulk create is all or nothing", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/transactions/bulk-create", "alice", `[
			{"accountId":"`+acc.ID+`","amount":"1","date":"2024-03-05","payee":"A"},
			{"accountId":"`+acc.ID+`","amount":"oops","date":"2024-03-05","payee":"B"}
		]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "transaction 1")

		rec = h.do(http.MethodPost, "/api/transactions/bulk-create", "alice", `[
			{"accountId":"`+acc.ID+`","amount":"1","date":"2024-03-05","payee":"A"},
			{"accountId":"`+acc.ID+`","amount":"2","date":"2024-03-06","payee":"B"}
		]`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created []transactionResponse
		data(t, rec, &created)
		assert.Len(t, created, 2)
	})

	t.Run("list is newest first within the window", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", "alice", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []transactionResponse
		data(t, rec, &list)
		require.Len(t, list, 3)
		assert.Equal(t, "2024-03-06", list[0].Date.String())
		assert.Equal(t, "2024-03-04", list[2].Date.String())

		rec = h.do(http.MethodGet, "/api/transactions?from=2024-03-05&to=2024-03-05", "alice", "")
		data(t, rec, &list)
		assert.Len(t, list, 1)

		rec = h.do(http.MethodGet, "/api/transactions?from=bad", "alice", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := h.do(http.MethodDelete, "/api/transactions/"+tx.ID, "bob", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = h.do(http.MethodDelete, "/api/transactions/"+tx.ID, "alice", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = h.do(http.MethodGet, "/api/transactions/"+tx.ID, "alice", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBulkDeleteConfirmation(t *testing.T) {
	h := newHarness(t)
	acc := h.createAccount("alice", "Checking")
	a := h.createTransaction("alice", services.TransactionInput{AccountID: acc.ID, Amount: "1", Date: "2024-03-01", Payee: "A"})
	b := h.createTransaction("alice", services.TransactionInput{AccountID: acc.ID, Amount: "2", Date: "2024-03-02", Payee: "B"})
	ids := `{"ids":["` + a.ID + `","` + b.ID + `","` + a.ID + `"]}`

	rec := h.do(http.MethodPost, "/api/transactions/bulk-delete", "alice", ids)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var prompt confirm.Prompt
	data(t, rec, &prompt)
	assert.NotEmpty(t, prompt.ID)
	assert.Equal(t, "Are you sure?", prompt.Title)
	assert.Equal(t, "You are about to delete 2 transactions", prompt.Message)

	rec = h.do(http.MethodPost, "/api/accounts/bulk-delete", "alice", `{"ids":["`+acc.ID+`"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "one prompt at a time")

	rec = h.do(http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", "alice", "")
	var list []transactionResponse
	data(t, rec, &list)
	assert.Len(t, list, 2, "nothing is deleted before confirmation")

	rec = h.do(http.MethodPost, "/api/confirmations/"+prompt.ID, "bob", `{"confirm":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other owners cannot answer")

	rec = h.do(http.MethodPost, "/api/confirmations/"+prompt.ID, "alice", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/confirmations/"+prompt.ID, "alice", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result services.DeleteResult
	data(t, rec, &result)
	assert.Equal(t, 2, result.Deleted)

	rec = h.do(http.MethodPost, "/api/confirmations/"+prompt.ID, "alice", `{"confirm":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, "a prompt resolves once")

	t.Run("cancel", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/accounts/bulk-delete", "alice", `{"ids":["`+acc.ID+`"]}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		var prompt confirm.Prompt
		data(t, rec, &prompt)
		assert.Equal(t, "You are about to delete 1 account", prompt.Message)

		rec = h.do(http.MethodPost, "/api/confirmations/"+prompt.ID, "alice", `{"confirm":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var result services.DeleteResult
		data(t, rec, &result)
		assert.True(t, result.Cancelled)

		rec = h.do(http.MethodGet, "/api/accounts/"+acc.ID, "alice", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty id list", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/categories/bulk-delete", "alice", `{"ids":[]}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImportInline(t *testing.T) {
	h := newHarness(t)
	acc := h.createAccount("alice", "Checking")

	path := "/api/summary?from=2024-03-01&to=2024-03-31"
	rec := h.do(http.MethodGet, path, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"source":"csv","accountId":"` + acc.ID + `",` +
		`"csv":"Date,Payee,Amount\n2024-03-01,Bakery,-3.20\n2024-03-02,Salary,2500\n2024-03-03,Broken,abc\n",` +
		`"mapping":{"date":0,"payee":1,"amount":2}}`
	rec = h.do(http.MethodPost, "/api/imports", "alice", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job importJobResponse
	data(t, rec, &job)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 2, job.Imported)
	assert.Equal(t, 1, job.Skipped)

	rec = h.do(http.MethodGet, "/api/imports/"+job.ID, "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/api/imports/"+job.ID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, path, "alice", "")
	var s summaryResponse
	data(t, rec, &s)
	assert.Equal(t, int64(249680), s.RemainingAmount, "inline imports invalidate the summary cache")

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name   string
			body   string
			status int
		}{
			{"missing mapping", `{"source":"csv","accountId":"` + acc.ID + `","csv":"a"}`, http.StatusBadRequest},
			{"column used twice", `{"source":"csv","accountId":"` + acc.ID + `","csv":"a","mapping":{"date":0,"payee":0,"amount":1}}`, http.StatusBadRequest},
			{"unmapped field", `{"source":"csv","accountId":"` + acc.ID + `","csv":"a","mapping":{"date":0,"payee":1}}`, http.StatusBadRequest},
			{"unknown source", `{"source":"ftp","accountId":"` + acc.ID + `","mapping":{"date":0,"payee":1,"amount":2}}`, http.StatusBadRequest},
			{"sheets without range", `{"source":"sheets","accountId":"` + acc.ID + `","spreadsheetId":"x","mapping":{"date":0,"payee":1,"amount":2}}`, http.StatusBadRequest},
			{"foreign account", `{"source":"csv","accountId":"nope","csv":"a","mapping":{"date":0,"payee":1,"amount":2}}`, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := h.do(http.MethodPost, "/api/imports", "alice", tt.body)
				assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("hasHeader false imports the first row", func(t *testing.T) {
		body := `{"source":"csv","accountId":"` + acc.ID + `","hasHeader":false,` +
			`"csv":"2024-03-04,Kiosk,-1\n","mapping":{"date":0,"payee":1,"amount":2}}`
		rec := h.do(http.MethodPost, "/api/imports", "alice", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		var job importJobResponse
		data(t, rec, &job)
		assert.Equal(t, 1, job.Imported)
	})

	t.Run("sheets source without a reader fails the job", func(t *testing.T) {
		body := `{"source":"sheets","accountId":"` + acc.ID + `","spreadsheetId":"sheet","range":"A:C",` +
			`"mapping":{"date":0,"payee":1,"amount":2}}`
		rec := h.do(http.MethodPost, "/api/imports", "alice", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		var job importJobResponse
		data(t, rec, &job)
		assert.Equal(t, core.JobFailed, job.Status)
		assert.NotEmpty(t, job.Error)
	})
}

func TestImportQueued(t *testing.T) {
	publisher := &stubPublisher{}
	h := newHarness(t, withPublisher(publisher))
	acc := h.createAccount("alice", "Checking")

	body := `{"source":"csv","accountId":"` + acc.ID + `","csv":"d,p,a\n2024-03-01,X,1\n","mapping":{"date":0,"payee":1,"amount":2}}`
	rec := h.do(http.MethodPost, "/api/imports", "alice", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var queued importQueuedResponse
	data(t, rec, &queued)
	assert.NotEmpty(t, queued.JobID)
	assert.Equal(t, "/api/imports/"+queued.JobID, rec.Header().Get("Location"))
	assert.Equal(t, []string{queued.JobID}, publisher.published)

	rec = h.do(http.MethodGet, "/api/imports/"+queued.JobID, "alice", "")
	var job importJobResponse
	data(t, rec, &job)
	assert.Equal(t, core.JobPending, job.Status)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, withRateLimit(1, 1))

	rec := h.do(http.MethodGet, "/api/accounts", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/accounts", "alice", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = h.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "operational endpoints are not limited")
}
