package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keymint/keymint/internal/handler"
	"github.com/keymint/keymint/internal/openapi"
	"github.com/keymint/keymint/internal/server/middleware"
	"github.com/keymint/keymint/internal/store"
	"github.com/keymint/keymint/internal/token"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	RateLimitPerMin int
	CORSOrigins     []string
	CORSMethods     []string
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		RateLimitPerMin: 300,
		CORSOrigins:     []string{"*"},
		CORSMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		Version:         "dev",
	}
}

// Server is the top-level HTTP server for keymint. It owns the Chi router,
// the token store, and the token manager.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	manager    *token.Manager
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, manager *token.Manager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		manager: manager,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: s.cfg.CORSMethods,
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.TokenHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimitPerMin))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", s.handleOpenAPI)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.manager))
		if s.cfg.RateLimitPerMin > 0 {
			// Keyed per bound token, after Authenticate, so one noisy
			// credential cannot exhaust an IP's budget for its neighbors.
			r.Use(middleware.RateLimitByToken(s.cfg.RateLimitPerMin))
		}

		tokenHandler := handler.NewTokenHandler(s.manager)

		r.Get("/whoami", tokenHandler.Whoami)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope("tokens.read"))
			r.Get("/token", tokenHandler.List)
			r.Get("/token/{tokenID}", tokenHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope("tokens.write"))
			r.Post("/token", tokenHandler.Create)
			r.Delete("/token", tokenHandler.RevokeAll)
			r.Delete("/token/{tokenID}", tokenHandler.Revoke)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the token store answers
// a ping, or 503 when it does not.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
	})
}

// handleOpenAPI serves the OpenAPI 3.1 document for the token API.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	doc := openapi.Generate(fmt.Sprintf("%s://%s", scheme, r.Host), s.cfg.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the token store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing token store", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
