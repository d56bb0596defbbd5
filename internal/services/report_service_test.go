package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/ports"
	"kakebo/internal/storage/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	for _, c := range []core.Category{
		{Name: "Salary", Type: core.CategoryIncome},
		{Name: "Food", Type: core.CategoryExpense},
	} {
		_, err := s.CreateCategory(ctx, c)
		require.NoError(t, err)
	}
	for _, tx := range []core.Transaction{
		{Amount: 250000, CategoryID: 1, Date: core.NewDate(2026, 1, 25), Type: core.Income},
		{Amount: 1500, CategoryID: 2, Date: core.NewDate(2026, 1, 15), Type: core.Expense},
		{Amount: 3000, CategoryID: 2, Date: core.NewDate(2026, 2, 1), Type: core.Expense},
		{Amount: 999, CategoryID: 2, Date: core.NewDate(2025, 12, 31), Type: core.Expense},
	} {
		_, err := s.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}
	return s
}

func newReports(reader ports.SnapshotReader) *ReportService {
	return NewReportService(reader, log.New(log.Config{Output: &bytes.Buffer{}}))
}

func TestReportService_Monthly(t *testing.T) {
	svc := newReports(seededStore(t))

	r, err := svc.Monthly(context.Background(), 2026, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), r.TotalIncome)
	assert.Equal(t, int64(1500), r.TotalExpense)
	assert.Equal(t, int64(248500), r.NetBalance)
	require.Len(t, r.ExpenseByCategory, 1)
	assert.Equal(t, "Food", r.ExpenseByCategory[0].CategoryName)

	empty, err := svc.Monthly(context.Background(), 2026, 13)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalExpense)
	assert.Equal(t, 13, empty.Month)
	assert.NotNil(t, empty.IncomeByCategory)
}

func TestReportService_Yearly(t *testing.T) {
	svc := newReports(seededStore(t))

	r, err := svc.Yearly(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, r.MonthlySummary, 12)
	assert.Equal(t, int64(4500), r.TotalExpense)
	assert.Equal(t, int64(3000), r.MonthlySummary[1].TotalExpense)
	assert.Equal(t, int64(250000-4500), r.NetBalance)
}

func TestReportService_ByCategory(t *testing.T) {
	svc := newReports(seededStore(t))
	start, end := "2026-01-01", "not-a-date"

	r, err := svc.ByCategory(context.Background(), &start, &end)
	require.NoError(t, err)
	require.NotNil(t, r.EndDate)
	assert.Equal(t, "not-a-date", *r.EndDate)
	assert.Equal(t, int64(4500), r.TotalExpense)
	assert.Equal(t, int64(250000), r.TotalIncome)

	all, err := svc.ByCategory(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, all.StartDate)
	assert.Equal(t, int64(5499), all.TotalExpense)
}

func TestReportService_Summary(t *testing.T) {
	svc := newReports(seededStore(t))
	food := int64(2)

	s, err := svc.Summary(context.Background(), ports.TransactionFilter{CategoryID: &food})
	require.NoError(t, err)
	assert.Equal(t, core.TransactionSummary{TotalExpense: 5499, Balance: -5499, TransactionCount: 3}, s)
}

type failingReader struct {
	*memory.Store
	catErr, txErr error
}

func (f failingReader) ListCategories(ctx context.Context) ([]core.Category, error) {
	if f.catErr != nil {
		return nil, f.catErr
	}
	return f.Store.ListCategories(ctx)
}

func (f failingReader) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]core.Transaction, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.Store.ListTransactions(ctx, filter)
}

func TestReportService_StoreErrorsSurface(t *testing.T) {
	boom := errors.New("disk gone")

	svc := newReports(failingReader{Store: memory.New(), catErr: boom})
	_, err := svc.Monthly(context.Background(), 2026, 1)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load categories")

	svc = newReports(failingReader{Store: memory.New(), txErr: boom})
	_, err = svc.Yearly(context.Background(), 2026)
	assert.ErrorIs(t, err, boom)
	_, err = svc.ByCategory(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
	_, err = svc.Summary(context.Background(), ports.TransactionFilter{})
	assert.ErrorIs(t, err, boom)
}

type recordingReader struct {
	*memory.Store
	mu      sync.Mutex
	filters []ports.TransactionFilter
}

func (r *recordingReader) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	r.mu.Lock()
	r.filters = append(r.filters, f)
	r.mu.Unlock()
	return r.Store.ListTransactions(ctx, f)
}

func TestReportService_YearsOutsideDateRangeSkipStore(t *testing.T) {
	reader := &recordingReader{Store: seededStore(t)}
	svc := newReports(reader)
	ctx := context.Background()

	for _, year := range []int{-10000, -1, 10000, 6000000} {
		monthly, err := svc.Monthly(ctx, year, 1)
		require.NoError(t, err)
		assert.Equal(t, year, monthly.Year)
		assert.Zero(t, monthly.NetBalance)
		assert.NotNil(t, monthly.ExpenseByCategory)

		yearly, err := svc.Yearly(ctx, year)
		require.NoError(t, err)
		assert.Len(t, yearly.MonthlySummary, 12)
		assert.Zero(t, yearly.TotalExpense)
	}
	assert.Empty(t, reader.filters)

	_, err := svc.Yearly(ctx, 9999)
	require.NoError(t, err)
	_, err = svc.Monthly(ctx, 2026, 1)
	require.NoError(t, err)
	require.Len(t, reader.filters, 2)
	for _, f := range reader.filters {
		require.NotNil(t, f.StartDate)
		require.NotNil(t, f.EndDate)
		assert.True(t, core.YearInRange(f.StartDate.Year()))
		assert.True(t, core.YearInRange(f.EndDate.Year()))
	}
	assert.Equal(t, "9999-12-31", reader.filters[0].EndDate.String())
	assert.Equal(t, "2026-01-31", reader.filters[1].EndDate.String())
}
