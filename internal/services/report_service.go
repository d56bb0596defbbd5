package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/ports"
	"kakebo/internal/reports"
)

// ReportService loads a ledger snapshot and runs the report engine over it.
type ReportService struct {
	reader ports.SnapshotReader
	logger *log.Logger
}

func NewReportService(reader ports.SnapshotReader, logger *log.Logger) *ReportService {
	return &ReportService{
		reader: reader,
		logger: logger.WithComponent(log.ComponentReports),
	}
}

// snapshot reads categories and the transactions matching f concurrently.
func (s *ReportService) snapshot(ctx context.Context, f ports.TransactionFilter) ([]core.Category, []core.Transaction, error) {
	var (
		cats []core.Category
		txs  []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = s.reader.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.reader.ListTransactions(gctx, f)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cats, txs, nil
}

// Monthly skips the store when no stored date can fall in the period, so an
// out-of-range year or month never reaches a date-typed query.
func (s *ReportService) Monthly(ctx context.Context, year, month int) (core.MonthlyReport, error) {
	var (
		cats []core.Category
		txs  []core.Transaction
	)
	if core.YearInRange(year) && month >= 1 && month <= 12 {
		start := core.NewDate(year, month, 1)
		end := core.DateOf(start.AddDate(0, 1, -1))

		var err error
		cats, txs, err = s.snapshot(ctx, ports.TransactionFilter{StartDate: &start, EndDate: &end})
		if err != nil {
			return core.MonthlyReport{}, fmt.Errorf("monthly report %04d-%02d: %w", year, month, err)
		}
	}

	start := time.Now()
	report := reports.Monthly(cats, txs, year, month)
	s.logger.DebugContext(ctx, "Monthly report computed",
		log.FieldYear, year, log.FieldMonth, month,
		"transactions", len(txs), log.FieldDuration, time.Since(start).Milliseconds())
	return report, nil
}

func (s *ReportService) Yearly(ctx context.Context, year int) (core.YearlyReport, error) {
	var txs []core.Transaction
	if core.YearInRange(year) {
		start := core.NewDate(year, 1, 1)
		end := core.NewDate(year, 12, 31)

		var err error
		txs, err = s.reader.ListTransactions(ctx, ports.TransactionFilter{StartDate: &start, EndDate: &end})
		if err != nil {
			return core.YearlyReport{}, fmt.Errorf("yearly report %04d: load transactions: %w", year, err)
		}
	}

	report := reports.Yearly(txs, year)
	s.logger.DebugContext(ctx, "Yearly report computed", log.FieldYear, year, "transactions", len(txs))
	return report, nil
}

// ByCategory passes the raw bounds through so malformed ones are echoed back
// in the report while being ignored for filtering.
func (s *ReportService) ByCategory(ctx context.Context, startDate, endDate *string) (core.CategoryReport, error) {
	var f ports.TransactionFilter
	if startDate != nil {
		if d, ok := core.ParseISODate(*startDate); ok {
			f.StartDate = &d
		}
	}
	if endDate != nil {
		if d, ok := core.ParseISODate(*endDate); ok {
			f.EndDate = &d
		}
	}

	cats, txs, err := s.snapshot(ctx, f)
	if err != nil {
		return core.CategoryReport{}, fmt.Errorf("category report: %w", err)
	}

	report := reports.ByCategory(cats, txs, startDate, endDate)
	s.logger.DebugContext(ctx, "Category report computed",
		"categories", len(report.Categories), "transactions", len(txs))
	return report, nil
}

// Summary totals the transactions matching f.
func (s *ReportService) Summary(ctx context.Context, f ports.TransactionFilter) (core.TransactionSummary, error) {
	txs, err := s.reader.ListTransactions(ctx, f)
	if err != nil {
		return core.TransactionSummary{}, fmt.Errorf("transaction summary: %w", err)
	}
	return reports.Totals(txs), nil
}
