package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/siliconsteed/rva-api/internal/auth"
	"github.com/siliconsteed/rva-api/internal/batch"
	"github.com/siliconsteed/rva-api/internal/health"
	"github.com/siliconsteed/rva-api/internal/metrics"
	"github.com/siliconsteed/rva-api/internal/vedic"
)

// Calculator computes single charts. *vedic.Calculator satisfies it.
type Calculator interface {
	Calculate(ctx context.Context, in vedic.Input) (*vedic.ResultSet, error)
	Ready() error
}

// BatchCalculator computes many charts. *batch.Pool satisfies it.
type BatchCalculator interface {
	CalculateBatch(ctx context.Context, inputs []vedic.Input) ([]batch.Outcome, error)
	MaxItems() int
}

// Config holds HTTP server settings.
type Config struct {
	Addr        string
	Auth        auth.Config
	CORSOrigins []string // empty means all origins
	TrustProxy  bool     // honour X-Forwarded-For / X-Real-IP
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, calc Calculator, batches BatchCalculator, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /{$}", rootHandler())
	mux.HandleFunc("POST /calculate-planets", calculateHandler(logger, calc))
	mux.HandleFunc("POST /calculate-planets/batch", batchHandler(logger, batches))
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(calc.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)

	// Build middleware chain: metrics -> proxy headers -> request id ->
	// logging -> recovery -> cors -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = cors(handler)
	handler = recoveryMiddleware(logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware(handler)
	if cfg.TrustProxy {
		handler = handlers.ProxyHeaders(handler)
	}
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}
