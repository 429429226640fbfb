package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"savings/internal/api"
	"savings/internal/log"
	"savings/internal/middleware/ratelimit"
	"savings/internal/middleware/security"
	"savings/internal/middleware/trace"
	"savings/internal/services"
)

// BasePath prefixes every API route.
const BasePath = "/blackrock/challenge/v1"

// operationRoutes maps route suffixes under BasePath to api operations.
var operationRoutes = map[string]api.Operation{
	"/transactions:parse":     api.OpParse,
	"/transactions:validator": api.OpValidate,
	"/transactions:filter":    api.OpFilter,
	"/returns:nps":            api.OpReturnsNPS,
	"/returns:index":          api.OpReturnsIndex,
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodyBytes   int64
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Logger         *log.Logger
}

// DefaultOptions returns options suitable for local development.
func DefaultOptions() Options {
	return Options{
		Addr:         ":8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodyBytes: DefaultMaxBodyBytes,
		RateLimit:    ratelimit.DefaultConfig(),
	}
}

type Server struct {
	http.Server
	service      *api.Service
	performance  *services.PerformanceReporter
	logger       *log.Logger
	maxBodyBytes int64

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	ready        atomic.Bool
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, svc *api.Service, perf *services.PerformanceReporter) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		service:      svc,
		performance:  perf,
		logger:       logger,
		maxBodyBytes: opts.MaxBodyBytes,
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		rateLimiter:  ratelimit.NewLimiter(opts.RateLimit),
	}

	apiMux := http.NewServeMux()
	for suffix, op := range operationRoutes {
		apiMux.HandleFunc(BasePath+suffix, s.handleOperation(op))
	}
	apiMux.HandleFunc(BasePath+"/performance", s.handlePerformance)
	apiMux.HandleFunc("/", handleNotFound)

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(apiMux)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/", limited)

	s.Handler = chain(mux,
		s.tracer.Middleware,
		log.Middleware(logger),
		log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		recoverPanics,
	)

	s.ready.Store(true)
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Metrics aggregates the middleware counters.
type Metrics struct {
	Trace     trace.Metrics
	RateLimit ratelimit.Metrics
	Security  security.DetectionMetrics
}

// GetMetrics returns a snapshot of request counters.
func (s *Server) GetMetrics() Metrics {
	return Metrics{
		Trace:     s.tracer.GetMetrics(),
		RateLimit: s.rateLimiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}

// Shutdown marks the server as not ready, stops background cleanup and
// drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.ready.Store(false)
		s.rateLimiter.Stop()

		m := s.GetMetrics()
		s.logger.Info("HTTP server shutting down",
			"total_requests", m.Trace.TotalRequests,
			"rate_limited", m.RateLimit.TotalHits,
			"suspicious_requests", m.Security.SuspiciousRequests)

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func logRequestError(ctx context.Context, op api.Operation, err error) {
	level := slog.LevelWarn
	if errorResponse(err).statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.FromContext(ctx).Log(ctx, level, "Operation failed",
		log.FieldOperation, string(op),
		log.FieldError, err)
}
