package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

// TransactionMutator applies validated changes to the transaction file.
type TransactionMutator interface {
	Create(ctx context.Context, in services.CreateInput) (core.Transaction, error)
	Update(ctx context.Context, id int64, in services.UpdateInput) (services.UpdateResult, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// TransactionQuerier serves the read-side views.
type TransactionQuerier interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
	Summarize(ctx context.Context) (core.Summary, error)
	Search(ctx context.Context, p query.SearchParams) (query.SearchResult, error)
}

// Options configures a Server.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Ready reports whether the transaction file can be served. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	mutator  TransactionMutator
	querier  TransactionQuerier
	ready    func(ctx context.Context) error
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, mutator TransactionMutator, querier TransactionQuerier) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		mutator:  mutator,
		querier:  querier,
		ready:    opts.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(limiterCfg),
		detector: security.NewDetector(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /add", s.handleAdd)
	mux.HandleFunc("POST /update/{id}", s.handleUpdate)
	mux.HandleFunc("POST /delete/{id}", s.handleDelete)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = s.withDetection(handler)
	handler = security.CORS(security.DefaultCORSConfig())(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// withDetection logs requests matching common attack patterns. They are
// still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
