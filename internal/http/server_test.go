package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/services"
	"kakebo/internal/storage/memory"
)

var testAssets = fstest.MapFS{
	"index.html": {Data: []byte("<!doctype html><title>Kakebo</title>")},
	"app.js":     {Data: []byte("console.log('kakebo')")},
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	if opts.Logger == nil {
		opts.Logger = logger
	}
	if opts.Assets == nil {
		opts.Assets = testAssets
	}
	s := NewServer(":0",
		services.NewLedgerService(store, nil, logger),
		services.NewReportService(store, logger),
		store, opts)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func seedLedger(t *testing.T, s *Server) {
	t.Helper()
	for _, body := range []string{
		`{"name":"Salary","category_type":"income","icon":"💴","color":"#4CAF50"}`,
		`{"name":"Food","category_type":"expense"}`,
	} {
		rec := do(s, http.MethodPost, "/api/categories/", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	for _, body := range []string{
		`{"amount":300000,"category_id":1,"transaction_date":"2026-01-25","transaction_type":"income"}`,
		`{"amount":1500,"category_id":2,"description":"Ramen","transaction_date":"2026-01-10","transaction_type":"expense"}`,
	} {
		rec := do(s, http.MethodPost, "/api/transactions/", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(s, http.MethodPost, "/api/categories/", `{"name":"  Food ","category_type":"Expense","icon":"🍙"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[categoryResponse](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Food", created.Name)
	assert.Equal(t, "expense", created.CategoryType)
	require.NotNil(t, created.Icon)
	assert.Nil(t, created.Color)
	_, err := time.Parse(time.RFC3339, created.CreatedAt)
	assert.NoError(t, err)

	rec = do(s, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse[categoryResponse]](t, rec)
	assert.Equal(t, 1, list.Count)
	assert.Len(t, list.Results, 1)

	rec = do(s, http.MethodPut, "/api/categories/1/", `{"name":"Groceries"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[categoryResponse](t, rec)
	assert.Equal(t, "Groceries", updated.Name)
	assert.Equal(t, "🍙", *updated.Icon)

	rec = do(s, http.MethodDelete, "/api/categories/1/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/categories/1/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category with id 1 not found", decode[errorBody](t, rec).Error)
}

func TestCategoryValidation(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown type", `{"name":"Gifts","category_type":"transfer"}`, "category_type"},
		{"blank name", `{"name":"   ","category_type":"income"}`, "name"},
		{"long color", `{"name":"Gifts","category_type":"income","color":"#12345678"}`, "color"},
		{"malformed json", `{"name":`, "request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/categories/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[errorBody](t, rec).Error, tt.want)
		})
	}

	rec := do(s, http.MethodPost, "/api/categories/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodPut, "/api/categories/42/", `{"name":"Nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category with id 42 not found", decode[errorBody](t, rec).Error)
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})
	seedLedger(t, s)

	rec := do(s, http.MethodPost, "/api/transactions",
		`{"amount":"¥2,480","category_id":2,"description":"Lunch","transaction_date":"2026-02-03T12:30:00Z","transaction_type":"expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transactionResponse](t, rec)
	assert.Equal(t, int64(2480), created.Amount)
	assert.Equal(t, "2026-02-03", created.TransactionDate)
	assert.Equal(t, "expense", created.TransactionType)

	rec = do(s, http.MethodPatch, "/api/transactions/3/", `{"amount":2500,"transaction_date":"2026-02-04"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[transactionResponse](t, rec)
	assert.Equal(t, int64(2500), updated.Amount)
	assert.Equal(t, "2026-02-04", updated.TransactionDate)
	assert.Equal(t, "Lunch", updated.Description)

	rec = do(s, http.MethodGet, "/api/transactions/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2500), decode[transactionResponse](t, rec).Amount)

	rec = do(s, http.MethodDelete, "/api/transactions/3/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, http.MethodGet, "/api/transactions/3/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transaction with id 3 not found", decode[errorBody](t, rec).Error)
}

func TestTransactionValidation(t *testing.T) {
	s := newTestServer(t, Options{})
	seedLedger(t, s)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero amount", `{"amount":0,"category_id":1,"transaction_date":"2026-01-01","transaction_type":"income"}`, "amount"},
		{"fractional amount", `{"amount":"12.5","category_id":1,"transaction_date":"2026-01-01","transaction_type":"income"}`, "amount"},
		{"bad date", `{"amount":100,"category_id":1,"transaction_date":"01/02/2026","transaction_type":"income"}`, "transaction_date"},
		{"bad type", `{"amount":100,"category_id":1,"transaction_date":"2026-01-01","transaction_type":"refund"}`, "transaction_type"},
		{"long description", `{"amount":100,"category_id":1,"transaction_date":"2026-01-01","transaction_type":"income","description":"` + strings.Repeat("x", 501) + `"}`, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/transactions/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[errorBody](t, rec).Error, tt.want)
		})
	}
}

func TestTransactionListFilters(t *testing.T) {
	s := newTestServer(t, Options{})
	seedLedger(t, s)

	rec := do(s, http.MethodGet, "/api/transactions/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[listResponse[transactionResponse]](t, rec).Count)

	rec = do(s, http.MethodGet, "/api/transactions/?transaction_type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	incomes := decode[listResponse[transactionResponse]](t, rec)
	require.Equal(t, 1, incomes.Count)
	assert.Equal(t, int64(300000), incomes.Results[0].Amount)

	rec = do(s, http.MethodGet, "/api/transactions/?start_date=2026-01-11&end_date=2026-01-31&category_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listResponse[transactionResponse]](t, rec).Count)

	for _, q := range []string{"start_date=yesterday", "category_id=food", "transaction_type=both"} {
		rec = do(s, http.MethodGet, "/api/transactions/?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = do(s, http.MethodGet, "/api/transactions/summary/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.TransactionSummary{
		TotalIncome:      300000,
		TotalExpense:     1500,
		Balance:          298500,
		TransactionCount: 2,
	}, decode[core.TransactionSummary](t, rec))

	rec = do(s, http.MethodGet, "/api/transactions/summary?transaction_type=expense", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(-1500), decode[core.TransactionSummary](t, rec).Balance)
}

func TestMonthlyReportCaching(t *testing.T) {
	s := newTestServer(t, Options{})
	seedLedger(t, s)

	rec := do(s, http.MethodGet, "/api/reports/monthly/?year=2026&month=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	report := decode[core.MonthlyReport](t, rec)
	assert.Equal(t, int64(300000), report.TotalIncome)
	assert.Equal(t, int64(1500), report.TotalExpense)
	assert.Equal(t, int64(298500), report.NetBalance)
	require.Len(t, report.ExpenseByCategory, 1)
	assert.Equal(t, "Food", report.ExpenseByCategory[0].CategoryName)

	rec = do(s, http.MethodGet, "/api/reports/monthly/?year=2026&month=1", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = do(s, http.MethodPost, "/api/transactions/",
		`{"amount":500,"category_id":2,"transaction_date":"2026-01-11","transaction_type":"expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, http.MethodGet, "/api/reports/monthly/?year=2026&month=1", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, int64(2000), decode[core.MonthlyReport](t, rec).TotalExpense)

	rec = do(s, http.MethodGet, "/reports/monthly?year=2026&month=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2000), decode[core.MonthlyReport](t, rec).TotalExpense)
}

func TestReportComputedBeforeWriteIsNotCached(t *testing.T) {
	s := newTestServer(t, Options{})
	const key = "/api/reports/yearly/?year=2026"

	gen := s.cacheGen.Load()
	s.invalidateReports()
	assert.False(t, s.cacheReport(key, []byte(`{"year":2026}`), gen))
	_, ok := s.reportCache.Get(key)
	assert.False(t, ok)

	assert.True(t, s.cacheReport(key, []byte(`{"year":2026}`), s.cacheGen.Load()))
	rec := do(s, http.MethodGet, key, "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestReportParameters(t *testing.T) {
	s := newTestServer(t, Options{})
	seedLedger(t, s)

	rec := do(s, http.MethodGet, "/api/reports/monthly/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[core.MonthlyReport](t, rec)
	assert.Equal(t, 2026, report.Year)
	assert.Equal(t, 3, report.Month)
	assert.NotNil(t, report.IncomeByCategory)

	rec = do(s, http.MethodGet, "/api/reports/monthly/?year=2026&month=13", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 13, decode[core.MonthlyReport](t, rec).Month)

	for _, target := range []string{
		"/api/reports/monthly/?year=abc",
		"/api/reports/monthly/?month=1.5",
		"/api/reports/yearly/?year=twenty",
	} {
		rec = do(s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec = do(s, http.MethodGet, "/api/reports/yearly/?year=2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	yearly := decode[core.YearlyReport](t, rec)
	assert.Len(t, yearly.MonthlySummary, 12)
	assert.Equal(t, int64(298500), yearly.NetBalance)
	assert.Equal(t, int64(298500), yearly.MonthlySummary[0].NetBalance)

	rec = do(s, http.MethodGet, "/api/reports/by-category/?start_date=garbage&end_date=2026-01-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	byCat := decode[core.CategoryReport](t, rec)
	require.NotNil(t, byCat.StartDate)
	assert.Equal(t, "garbage", *byCat.StartDate)
	assert.Equal(t, int64(0), byCat.TotalIncome)
	assert.Equal(t, int64(1500), byCat.TotalExpense)

	rec = do(s, http.MethodGet, "/reports/by-category", "")
	require.Equal(t, http.StatusOK, rec.Code)
	byCat = decode[core.CategoryReport](t, rec)
	assert.Nil(t, byCat.StartDate)
	assert.Len(t, byCat.Categories, 2)
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := do(s, http.MethodPost, "/api/categories/", `{"name":"Food","category_type":"expense"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := do(s, http.MethodPost, "/api/categories/", `{"name":"Food","category_type":"expense"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = do(s, http.MethodGet, "/api/categories/", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
}

func TestWriteRateLimitBehindTrustedProxy(t *testing.T) {
	post := func(s *Server, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/categories/",
			strings.NewReader(`{"name":"Food","category_type":"expense"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// httptest requests come from 192.0.2.1.
	s := newTestServer(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.0/24"}})
	assert.Equal(t, http.StatusCreated, post(s, "198.51.100.1"))
	assert.Equal(t, http.StatusCreated, post(s, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, post(s, "198.51.100.1"))

	untrusted := newTestServer(t, Options{RateLimitPerMinute: 1})
	assert.Equal(t, http.StatusCreated, post(untrusted, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, post(untrusted, "198.51.100.2"))
}

func TestStaticAndIndex(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Kakebo</title>")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = do(s, http.MethodGet, "/static/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = do(s, http.MethodGet, "/static/../go.mod", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", decode[errorBody](t, rec).Error)
}

func TestRoutingErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[errorBody](t, rec).Error)

	rec = do(s, http.MethodDelete, "/api/categories/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthReadyAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[statusResponse](t, rec).Status)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.store = failingPinger{}
	rec = do(s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_ = do(s, http.MethodGet, "/api/reports/yearly/?year=2026", "")
	_ = do(s, http.MethodGet, "/api/reports/yearly/?year=2026", "")

	rec = do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "kakebo_http_requests_total ")
	assert.Contains(t, body, "kakebo_report_cache_hits_total 1\n")
	assert.Contains(t, body, "kakebo_report_cache_entries 1\n")
}
