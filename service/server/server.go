package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	actionVersion = "2.1.3"
	// CAIP-2 id of Solana mainnet.
	blockchainID = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
)

// ActionService is the action-resolution core the handlers delegate to.
type ActionService interface {
	Describe(ctx context.Context, id actions.AssetID) (actions.Descriptor, *actions.Failure)
	Prepare(ctx context.Context, id actions.AssetID, intent actions.Intent) (actions.UnsignedTransaction, *actions.Failure)
}

// Server represents the HTTP server for the action endpoints.
type Server struct {
	addr     string
	service  ActionService
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *slog.Logger
	handler  http.Handler
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The routing table is built here and never changes afterwards.
// The metrics is optional - if nil, /metrics is not served and requests are not instrumented.
func New(addr string, service ActionService, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		addr:     addr,
		service:  service,
		validate: newValidator(),
		metrics:  m,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped routing table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /item/{itemId}", metrics.HTTPMetricsMiddleware(s.metrics, "GET /item/{itemId}")(handleGetItem(s.service, s.logger)))
	mux.Handle("POST /item/{itemId}/buy", metrics.HTTPMetricsMiddleware(s.metrics, "POST /item/{itemId}/buy")(handleBuy(s.service, s.validate, s.logger)))
	mux.Handle("POST /item/{itemId}/offer", metrics.HTTPMetricsMiddleware(s.metrics, "POST /item/{itemId}/offer")(handleOffer(s.service, s.validate, s.logger)))
	mux.Handle("GET /actions.json", handleActionsJSON())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr, "metrics_enabled", s.metrics != nil)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware sets the headers wallets expect on every action response and
// answers OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Content-Encoding, Accept-Encoding, X-Action-Version, X-Blockchain-Ids")
		w.Header().Set("Access-Control-Expose-Headers", "X-Action-Version, X-Blockchain-Ids")
		w.Header().Set("Access-Control-Max-Age", "3600")
		w.Header().Set("X-Action-Version", actionVersion)
		w.Header().Set("X-Blockchain-Ids", blockchainID)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
