package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"kakebo/internal/core"
	"kakebo/internal/events"
	"kakebo/internal/log"
	"kakebo/internal/sheets"
)

// YearlyReporter computes the yearly report the worker exports.
type YearlyReporter interface {
	Yearly(ctx context.Context, year int) (core.YearlyReport, error)
}

// ExportWorker keeps the exported yearly reports in step with the ledger.
type ExportWorker struct {
	reports  YearlyReporter
	exporter sheets.ReportExporter
	logger   *log.Logger
	now      func() time.Time
}

func NewExportWorker(reports YearlyReporter, exporter sheets.ReportExporter, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		reports:  reports,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// Handle re-exports the year an event touched. Category events carry no
// period, so they refresh the current year.
func (w *ExportWorker) Handle(ctx context.Context, e events.Event) error {
	year := e.Year
	if year == 0 {
		year = w.now().Year()
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventID, e.ID,
		log.FieldEntity, string(e.Kind),
		log.FieldEntityID, e.EntityID,
		log.FieldOperation, string(e.Action),
		log.FieldYear, year)

	if err := w.ExportYear(ctx, year); err != nil {
		return fmt.Errorf("handle event %s: %w", e.ID, err)
	}
	return nil
}

// ExportYear recomputes and exports the report for year.
func (w *ExportWorker) ExportYear(ctx context.Context, year int) error {
	start := time.Now()

	report, err := w.reports.Yearly(ctx, year)
	if err != nil {
		return fmt.Errorf("compute yearly report %d: %w", year, err)
	}
	if err := w.exporter.ExportYearly(ctx, report); err != nil {
		return fmt.Errorf("export yearly report %d: %w", year, err)
	}

	w.logger.InfoContext(ctx, "Yearly report exported",
		log.FieldOperation, log.OpExport,
		log.FieldYear, year,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Run exports the current year on schedule and, when sub is non-nil, after
// every ledger event. It blocks until ctx is done.
func (w *ExportWorker) Run(ctx context.Context, sub events.Subscriber, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if err := w.ExportYear(ctx, w.now().Year()); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled export failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("parse export schedule %q: %w", schedule, err)
	}

	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	w.logger.InfoContext(ctx, "Export worker started", "schedule", schedule, "subscribed", sub != nil)

	if sub == nil {
		<-ctx.Done()
		return nil
	}

	err := sub.Subscribe(ctx, w.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}
