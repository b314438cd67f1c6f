// Package httpapi exposes route administration of a running nukleus over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
	"github.com/rmacdonaldsmith/reaktor-go/internal/reaktor"
)

// Server represents the HTTP API server
type Server struct {
	nukleus    *reaktor.Nukleus
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	listener   net.Listener
}

// Config holds server configuration
type Config struct {
	Address   string
	SecretKey string
	NoAuth    bool
}

// NewServer creates a new HTTP API server
func NewServer(n *reaktor.Nukleus, config Config) *Server {
	logger := logging.Logger("httpapi").With("nukleus", n.Name())
	jwtAuth := NewJWTAuth(config.SecretKey, n.Name())

	server := &Server{
		nukleus:    n,
		jwtAuth:    jwtAuth,
		handlers:   NewHandlers(n, jwtAuth),
		middleware: NewMiddleware(jwtAuth, logger, config.NoAuth),
	}

	server.server = &http.Server{
		Addr:           config.Address,
		Handler:        server.setupRoutes(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return server
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.middleware.logger.Error("admin API stopped", "error", err)
		}
	}()
	s.middleware.logger.Info("admin API listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.middleware.Recovery, s.middleware.Logging, s.middleware.CORS)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	api := r.PathPrefix("/api/v1").Subrouter()

	// Authentication endpoints (no auth required)
	api.HandleFunc("/auth/login", s.handlers.Login).Methods(http.MethodPost)

	// Route table endpoints
	api.HandleFunc("/routes", s.middleware.AuthRequired(s.handlers.ListRoutes)).Methods(http.MethodGet)
	api.HandleFunc("/routes", s.middleware.AdminRequired(s.handlers.AddRoute)).Methods(http.MethodPost)
	api.HandleFunc("/routes/unroute", s.middleware.AdminRequired(s.handlers.Unroute)).Methods(http.MethodPost)
	api.HandleFunc("/resolve", s.middleware.AuthRequired(s.handlers.Resolve)).Methods(http.MethodPost)

	// Source endpoints
	api.HandleFunc("/sources", s.middleware.AuthRequired(s.handlers.ListSources)).Methods(http.MethodGet)
	api.HandleFunc("/sources/{source}/routes", s.middleware.AuthRequired(s.handlers.ListSourceRoutes)).Methods(http.MethodGet)

	// Health endpoint (no auth required)
	api.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(s.nukleus.Context().Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	return r
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service": "reaktor admin API",
		"nukleus": s.nukleus.Name(),
		"endpoints": map[string]interface{}{
			"auth": map[string]string{
				"login": "POST /api/v1/auth/login",
			},
			"routes": map[string]string{
				"list":    "GET /api/v1/routes",
				"add":     "POST /api/v1/routes",
				"unroute": "POST /api/v1/routes/unroute",
				"resolve": "POST /api/v1/resolve",
			},
			"sources": map[string]string{
				"list":   "GET /api/v1/sources",
				"routes": "GET /api/v1/sources/{source}/routes",
			},
			"health":  "GET /api/v1/health",
			"metrics": "GET /metrics",
		},
		"authentication": "Bearer JWT token required for most endpoints",
	}

	writeJSON(w, info, http.StatusOK)
}
