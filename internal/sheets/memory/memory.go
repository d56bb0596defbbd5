package memory

import (
	"context"
	"sync"

	"kakebo/internal/core"
	ports "kakebo/internal/sheets"
)

// Recorder keeps exported reports in memory, latest per year. It stands in
// for the spreadsheet when none is configured.
type Recorder struct {
	mu      sync.Mutex
	byYear  map[int]core.YearlyReport
	exports int
}

var _ ports.ReportExporter = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{byYear: map[int]core.YearlyReport{}}
}

func (r *Recorder) ExportYearly(ctx context.Context, report core.YearlyReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byYear[report.Year] = report
	r.exports++
	return nil
}

// Latest returns the most recent export for year.
func (r *Recorder) Latest(year int) (core.YearlyReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.byYear[year]
	return rep, ok
}

// Count returns how many exports have been recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exports
}
