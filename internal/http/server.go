// Package http serves the ledger JSON API, the report endpoints and the
// embedded front end.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"kakebo/internal/cache"
	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/middleware/ratelimit"
	"kakebo/internal/middleware/security"
	"kakebo/internal/middleware/trace"
	"kakebo/internal/ports"
)

const (
	handlerTimeout      = 7 * time.Second
	readyTimeout        = 2 * time.Second
	reportCacheSize     = 200
	cacheCleanupPeriod  = time.Minute
	staticAssetMaxAge   = 3600
	defaultReportTTL    = 30 * time.Second
	defaultRateLimitRPM = 60
)

// Ledger is the write side the API exposes.
type Ledger interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Reports computes the read-only aggregates.
type Reports interface {
	Monthly(ctx context.Context, year, month int) (core.MonthlyReport, error)
	Yearly(ctx context.Context, year int) (core.YearlyReport, error)
	ByCategory(ctx context.Context, startDate, endDate *string) (core.CategoryReport, error)
	Summary(ctx context.Context, f ports.TransactionFilter) (core.TransactionSummary, error)
}

// Pinger reports store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	ReportCacheTTL     time.Duration
	// TrustedProxies are CIDRs, beyond the private ranges, whose forwarded
	// headers are believed when resolving the client IP.
	TrustedProxies []string
	// Assets holds index.html and the static files. Nil disables the front end.
	Assets fs.FS
	Logger *log.Logger
}

type Server struct {
	http.Server
	ledger  Ledger
	reports Reports
	store   Pinger
	assets  fs.FS

	reportCache *cache.LRUCache[[]byte]
	cacheGen    atomic.Uint64
	caches      *cache.Manager
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	logger       *log.Logger
	startedAt    time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, reports Reports, store Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ttl := opts.ReportCacheTTL
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	rpm := opts.RateLimitPerMinute
	if rpm <= 0 {
		rpm = defaultRateLimitRPM
	}

	s := &Server{
		ledger:      ledger,
		reports:     reports,
		store:       store,
		assets:      opts.Assets,
		reportCache: cache.NewLRUCache[[]byte](reportCacheSize, ttl),
		caches:      cache.NewManager(logger),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: rpm}),
		detector:    security.NewDetector(logger),
		logger:      logger,
		startedAt:   time.Now(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.caches.Register(s.reportCache)
	s.caches.StartCleanup(cacheCleanupPeriod)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(s.routes()))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	// SkipClean keeps ".." in static paths so the asset handler can refuse them.
	r := mux.NewRouter().SkipClean(true)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	write := func(h http.HandlerFunc) http.Handler { return limited(h) }

	handle(r, "/api/categories", http.HandlerFunc(s.handleListCategories), http.MethodGet)
	handle(r, "/api/categories", write(s.handleCreateCategory), http.MethodPost)
	handle(r, "/api/categories/{id:[0-9]+}", http.HandlerFunc(s.handleGetCategory), http.MethodGet)
	handle(r, "/api/categories/{id:[0-9]+}", write(s.handleUpdateCategory), http.MethodPut, http.MethodPatch)
	handle(r, "/api/categories/{id:[0-9]+}", write(s.handleDeleteCategory), http.MethodDelete)

	handle(r, "/api/transactions", http.HandlerFunc(s.handleListTransactions), http.MethodGet)
	handle(r, "/api/transactions", write(s.handleCreateTransaction), http.MethodPost)
	handle(r, "/api/transactions/summary", http.HandlerFunc(s.handleTransactionSummary), http.MethodGet)
	handle(r, "/api/transactions/{id:[0-9]+}", http.HandlerFunc(s.handleGetTransaction), http.MethodGet)
	handle(r, "/api/transactions/{id:[0-9]+}", write(s.handleUpdateTransaction), http.MethodPut, http.MethodPatch)
	handle(r, "/api/transactions/{id:[0-9]+}", write(s.handleDeleteTransaction), http.MethodDelete)

	for _, prefix := range []string{"/api", ""} {
		handle(r, prefix+"/reports/monthly", http.HandlerFunc(s.handleMonthlyReport), http.MethodGet)
		handle(r, prefix+"/reports/yearly", http.HandlerFunc(s.handleYearlyReport), http.MethodGet)
		handle(r, prefix+"/reports/by-category", http.HandlerFunc(s.handleCategoryReport), http.MethodGet)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	if s.assets != nil {
		r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
		r.PathPrefix("/static/").Handler(s.staticHandler()).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}

// handle registers path with and without a trailing slash.
func handle(r *mux.Router, path string, h http.Handler, methods ...string) {
	r.Handle(path, h).Methods(methods...)
	r.Handle(path+"/", h).Methods(methods...)
}

// invalidateReports drops every cached report. Bumping the generation
// keeps reports computed before the write from being cached afterwards.
func (s *Server) invalidateReports() {
	s.cacheGen.Add(1)
	s.reportCache.Purge()
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
