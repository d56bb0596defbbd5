package http

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"kakebo/internal/log"
)

const entityReport = "Report"

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, err, entityReport, 0)
		return
	}
	s.serveReport(w, r, func(ctx context.Context) (any, error) {
		return s.reports.Monthly(ctx, params.Year, params.Month)
	})
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, err, entityReport, 0)
		return
	}
	s.serveReport(w, r, func(ctx context.Context) (any, error) {
		return s.reports.Yearly(ctx, year)
	})
}

// handleCategoryReport passes the bounds through verbatim; malformed dates
// are ignored by the report but still echoed back.
func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start := OptionalQuery(query, "start_date")
	end := OptionalQuery(query, "end_date")
	s.serveReport(w, r, func(ctx context.Context) (any, error) {
		return s.reports.ByCategory(ctx, start, end)
	})
}

// serveReport answers from the report cache, keyed by request URI, and
// computes and caches the report on a miss.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, build func(context.Context) (any, error)) {
	key := r.URL.RequestURI()
	if body, ok := s.reportCache.Get(key); ok {
		_ = NewJSONResponse().Header("X-Cache", "HIT").Raw(body).Write(w)
		return
	}

	gen := s.cacheGen.Load()

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	report, err := build(ctx)
	if err != nil {
		s.writeError(w, r, err, entityReport, 0)
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode report", log.FieldError, err)
		_ = InternalServerError().Write(w)
		return
	}
	s.cacheReport(key, body, gen)
	_ = NewJSONResponse().Header("X-Cache", "MISS").Raw(body).Write(w)
}

// cacheReport stores body unless a write invalidated the cache after gen was
// read. The generation is compared under the cache lock so a concurrent purge
// either sees the entry or prevents it.
func (s *Server) cacheReport(key string, body []byte, gen uint64) bool {
	return s.reportCache.SetIf(key, body, func() bool { return s.cacheGen.Load() == gen })
}
