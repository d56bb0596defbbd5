package sheets

import (
	"context"

	"kakebo/internal/core"
)

// ReportExporter publishes a computed report outside the ledger.
type ReportExporter interface {
	// ExportYearly replaces any previous export for report.Year.
	ExportYearly(ctx context.Context, report core.YearlyReport) error
}
