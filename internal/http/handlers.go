package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/middleware/security"
	"kakebo/internal/ports"
)

// writeJSON sends v with the given status, logging encoding failures.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := NewJSONResponse().Status(status).Payload(v).Write(w); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

// writeError maps service errors onto status codes. entity and id name the
// record for 404 messages.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, entity string, id int64) {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		_ = NotFoundError(fmt.Sprintf("%s with id %d not found", entity, id)).Write(w)
	case errors.As(err, &ve):
		_ = BadRequestError(ve.Error()).Write(w)
	case errors.Is(err, errEmptyBody), errors.Is(err, errTrailing), errors.Is(err, errBadRequest), errors.Is(err, errInvalidID):
		_ = BadRequestError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		_ = InternalServerError().Write(w)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("Readiness check failed", log.FieldError, err)
			s.writeJSON(w, r, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
	}
	s.writeJSON(w, r, http.StatusOK, statusResponse{Status: "ready"})
}

// handleMetrics renders counters as plain text, one "name value" per line.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sm := s.detector.GetMetrics()
	cs := s.reportCache.Stats()

	var b strings.Builder
	line := func(name string, value any) { fmt.Fprintf(&b, "%s %v\n", name, value) }
	line("kakebo_uptime_seconds", int64(time.Since(s.startedAt).Seconds()))
	line("kakebo_http_requests_total", tm.TotalRequests)
	line("kakebo_http_requests_failed_total", tm.FailedRequests)
	line("kakebo_http_response_time_avg_microseconds", tm.AverageResponseTime)
	line("kakebo_rate_limit_allowed_total", rl.Allowed)
	line("kakebo_rate_limit_rejected_total", rl.Rejected)
	line("kakebo_rate_limit_clients", rl.ClientCount)
	line("kakebo_report_cache_entries", cs.Size)
	line("kakebo_report_cache_hits_total", cs.Hits)
	line("kakebo_report_cache_misses_total", cs.Misses)
	line("kakebo_security_suspicious_requests_total", sm.SuspiciousRequests)
	line("kakebo_security_invalid_ip_total", sm.InvalidIPAttempts)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, s.assets, "index.html")
}

// staticHandler serves embedded assets under /static/. Any path containing
// ".." is refused before it reaches the file server.
func (s *Server) staticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(s.assets)))
	cached := security.StaticAssetMiddleware(staticAssetMaxAge)(files)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.RawPath, "..") {
			_ = ForbiddenError().Write(w)
			return
		}
		cached.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	_ = NotFoundError("not found").Write(w)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = MethodNotAllowedError().Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	_ = TooManyRequestsError().Write(w)
}
