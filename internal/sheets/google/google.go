package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakebo/internal/core"
	"kakebo/internal/log"
	ports "kakebo/internal/sheets"
)

// Header is the first row of every exported tab.
var Header = []any{"Month", "Income", "Expense", "Net"}

type Config struct {
	SpreadsheetID   string
	SheetName       string // base tab name; the year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

// Client writes yearly reports into a Google spreadsheet, one tab per year.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.ReportExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	var auth goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		auth = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		auth = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		return nil, errors.New("missing REPORT_SHEET_NAME")
	}
	return &Client{
		svc:           svc,
		spreadsheetID: id,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// ExportYearly writes report into the "<year> <sheet name>" tab, creating it if needed.
func (c *Client) ExportYearly(ctx context.Context, report core.YearlyReport) error {
	tab := yearPrefixedName(c.sheetName, report.Year)

	if err := c.ensureSheet(ctx, tab); err != nil {
		return fmt.Errorf("ensure sheet %q: %w", tab, err)
	}

	rows := yearlyRows(report)
	rng := fmt.Sprintf("%s!A1:D%d", quoteSheet(tab), len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Yearly report exported",
		log.FieldYear, report.Year,
		"sheet", tab,
		"net_balance", report.NetBalance)
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	c.logger.InfoContext(ctx, "Created report sheet", "sheet", title)
	return nil
}

// yearlyRows renders a header, one row per month and a totals row.
func yearlyRows(r core.YearlyReport) [][]any {
	rows := make([][]any, 0, len(r.MonthlySummary)+2)
	rows = append(rows, Header)
	for _, m := range r.MonthlySummary {
		rows = append(rows, []any{
			fmt.Sprintf("%04d-%02d", r.Year, m.Month),
			m.TotalIncome,
			m.TotalExpense,
			m.NetBalance,
		})
	}
	rows = append(rows, []any{"Total", r.TotalIncome, r.TotalExpense, r.NetBalance})
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
