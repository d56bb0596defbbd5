package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"kakebo/internal/cli"
	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/services"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ledger reports",
	}
	cmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json)")

	now := time.Now()

	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Income and expense for one month, grouped by category",
		RunE: withReports(func(ctx context.Context, cmd *cobra.Command, reports *services.ReportService) (any, error) {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			return reports.Monthly(ctx, year, month)
		}),
	}
	monthly.Flags().Int("year", now.Year(), "report year")
	monthly.Flags().Int("month", int(now.Month()), "report month (1-12)")

	yearly := &cobra.Command{
		Use:   "yearly",
		Short: "Twelve monthly totals for one year",
		RunE: withReports(func(ctx context.Context, cmd *cobra.Command, reports *services.ReportService) (any, error) {
			year, _ := cmd.Flags().GetInt("year")
			return reports.Yearly(ctx, year)
		}),
	}
	yearly.Flags().Int("year", now.Year(), "report year")

	byCategory := &cobra.Command{
		Use:   "by-category",
		Short: "Totals per category over an optional date range",
		RunE: withReports(func(ctx context.Context, cmd *cobra.Command, reports *services.ReportService) (any, error) {
			return reports.ByCategory(ctx, optionalFlag(cmd, "start"), optionalFlag(cmd, "end"))
		}),
	}
	byCategory.Flags().String("start", "", "inclusive start date (YYYY-MM-DD)")
	byCategory.Flags().String("end", "", "inclusive end date (YYYY-MM-DD)")

	cmd.AddCommand(monthly, yearly, byCategory)
	return cmd
}

type reportFunc func(ctx context.Context, cmd *cobra.Command, reports *services.ReportService) (any, error)

// withReports wires a ledger for a one-shot report and prints the result.
// Logs go to stderr so stdout carries only the report.
func withReports(fn reportFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid format %q: must be text or json", format)
		}

		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		logger := cli.SetupLogger(cfg, os.Stderr)

		rt, err := cli.NewRuntime(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize ledger: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Error("Failed to close ledger", log.FieldError, err)
			}
		}()

		report, err := fn(cmd.Context(), cmd, rt.Reports)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), format, report)
	}
}

// optionalFlag returns nil for flags the user did not set.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func printReport(w io.Writer, format string, report any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	switch r := report.(type) {
	case core.MonthlyReport:
		return writeMonthly(w, r)
	case core.YearlyReport:
		return writeYearly(w, r)
	case core.CategoryReport:
		return writeByCategory(w, r)
	default:
		return fmt.Errorf("unsupported report type %T", report)
	}
}

func writeMonthly(w io.Writer, r core.MonthlyReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%04d-%02d\t\t\n", r.Year, r.Month)
	fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatYen(r.TotalIncome))
	fmt.Fprintf(tw, "Expense\t%s\t\n", core.FormatYen(r.TotalExpense))
	fmt.Fprintf(tw, "Net\t%s\t\n", core.FormatYen(r.NetBalance))
	writeSummaries(tw, "Income by category", r.IncomeByCategory)
	writeSummaries(tw, "Expense by category", r.ExpenseByCategory)
	return tw.Flush()
}

func writeSummaries(tw *tabwriter.Writer, title string, rows []core.CategorySummary) {
	fmt.Fprintf(tw, "\t\t\n%s\t\t\n", title)
	if len(rows) == 0 {
		fmt.Fprintf(tw, "(none)\t\t\n")
		return
	}
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", s.CategoryName, core.FormatYen(s.TotalAmount), s.TransactionCount)
	}
}

func writeYearly(w io.Writer, r core.YearlyReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Month\tIncome\tExpense\tNet\t\n")
	for _, m := range r.MonthlySummary {
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%s\t\n", r.Year, m.Month,
			core.FormatYen(m.TotalIncome), core.FormatYen(m.TotalExpense), core.FormatYen(m.NetBalance))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t\n",
		core.FormatYen(r.TotalIncome), core.FormatYen(r.TotalExpense), core.FormatYen(r.NetBalance))
	return tw.Flush()
}

func writeByCategory(w io.Writer, r core.CategoryReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "From\t%s\t\n", orAll(r.StartDate))
	fmt.Fprintf(tw, "To\t%s\t\n", orAll(r.EndDate))
	fmt.Fprintf(tw, "Category\tAmount\tCount\t\n")
	for _, s := range r.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", s.CategoryName, core.FormatYen(s.TotalAmount), s.TransactionCount)
	}
	fmt.Fprintf(tw, "Income\t%s\t\t\n", core.FormatYen(r.TotalIncome))
	fmt.Fprintf(tw, "Expense\t%s\t\t\n", core.FormatYen(r.TotalExpense))
	return tw.Flush()
}

func orAll(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
