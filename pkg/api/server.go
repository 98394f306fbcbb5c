package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/logging"
	"account-grid/pkg/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PageQuerier serves account pages.
type PageQuerier interface {
	GetPage(ctx context.Context, pageIndex, pageSize int) (*account.Page, error)
}

// HealthChecker reports whether the account store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// Server exposes the account listing over HTTP.
type Server struct {
	query    PageQuerier
	health   HealthChecker
	metrics  metrics.Collector
	config   ServerConfig
	logger   *logging.Logger
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":5000")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// DefaultPageSize is used when the request carries no pageSize
	DefaultPageSize int

	// CORSOrigin is echoed in Access-Control-Allow-Origin. Empty disables CORS headers.
	CORSOrigin string

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:         ":5000",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		DefaultPageSize: 10,
		CORSOrigin:      "http://localhost:4200",
	}
}

// NewServer creates a new API server.
func NewServer(q PageQuerier, health HealthChecker, collector metrics.Collector, config ServerConfig) *Server {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if config.DefaultPageSize < 1 {
		config.DefaultPageSize = DefaultServerConfig().DefaultPageSize
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		query:   q,
		health:  health,
		metrics: collector,
		config:  config,
		logger:  logging.Global().Named("api"),
	}

	r := mux.NewRouter()
	r.Use(s.metricsMiddleware, s.corsMiddleware)

	r.HandleFunc(account.PaginatedPath, s.handleGetAllAccountsPaginated).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// mux skips r.Use middleware when no route matches.
	r.NotFoundHandler = s.metricsMiddleware(s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, account.ErrorResponse{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path})
	})))
	r.MethodNotAllowedHandler = s.metricsMiddleware(s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, account.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: r.Method + " is not allowed"})
	})))

	s.router = r
	s.handler = foldPathCase(r, account.PaginatedPath, "/health", "/metrics")
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in a goroutine.
// Bind errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", s.config.Address, err)
	}
	s.listener = ln

	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleGetAllAccountsPaginated serves GET /api/Accounts/GetAllAccountsPaginated.
func (s *Server) handleGetAllAccountsPaginated(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	q := r.URL.Query()
	pageIndex, err := intParam(q.Get("pageIndex"), "pageIndex", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pageSize, err := intParam(q.Get("pageSize"), "pageSize", s.config.DefaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.query.GetPage(r.Context(), pageIndex, pageSize)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("client went away", logging.Page(pageIndex, pageSize)...)
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleHealth pings the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "healthy",
		"store":     s.health.Name(),
		"timestamp": time.Now().Unix(),
	}

	if err := s.health.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.String("store", s.health.Name()), zap.Error(err))
		response["status"] = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := account.NewErrorResponse(err)
	status := account.HTTPStatus(body.Code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", body.Code),
			zap.Error(err),
		)
	}

	writeJSON(w, status, body)
}

// intParam parses an optional integer query parameter.
func intParam(raw, name string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", account.ErrInvalidArgument, name, raw)
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
