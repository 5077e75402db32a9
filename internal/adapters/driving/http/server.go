package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/custodia-labs/parranda-auth/internal/core/ports/driving"
	"github.com/custodia-labs/parranda-auth/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	authService driving.AuthService
	metrics     *metrics.Metrics

	// Readiness checks by name, e.g. "postgres", "redis"
	checks map[string]Pinger

	corsOrigins []string
	loginLimit  RateLimitConfig
	clientIP    *ClientIP
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty disables CORS headers.
	CORSAllowedOrigins []string

	// LoginRateLimit caps register/login/refresh requests per minute per
	// client IP. Zero disables rate limiting.
	LoginRateLimit int

	// TrustedProxies lists proxy addresses or CIDR prefixes whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string

	Logger  *slog.Logger      // Optional
	Metrics *metrics.Metrics  // Optional
	Checks  map[string]Pinger // Optional readiness checks
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		LoginRateLimit: 10,
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, authService driving.AuthService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	trusted, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted proxies, forwarding headers will not be trusted", "error", err)
		trusted = nil
	}

	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		logger:      logger,
		authService: authService,
		metrics:     cfg.Metrics,
		checks:      cfg.Checks,
		corsOrigins: cfg.CORSAllowedOrigins,
		loginLimit: RateLimitConfig{
			RequestsPerWindow: cfg.LoginRateLimit,
			Window:            time.Minute,
			Burst:             cfg.LoginRateLimit,
		},
		clientIP: NewClientIP(trusted),
	}

	s.setupRoutes()
	s.handler = s.wrap(s.router)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	limited := func(h http.HandlerFunc) http.Handler { return h }
	if s.loginLimit.RequestsPerWindow > 0 {
		limiter := NewRateLimiter(s.loginLimit, s.clientIP.Key, s.onRateLimited)
		limited = func(h http.HandlerFunc) http.Handler { return limiter.Handler(h) }
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}
	s.router.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Auth endpoints (public)
	s.router.Handle("POST /api/v1/auth/register", limited(s.handleRegister))
	s.router.Handle("POST /api/v1/auth/login", limited(s.handleLogin))
	s.router.Handle("POST /api/v1/auth/refresh", limited(s.handleRefresh))
	s.router.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)

	// Session endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout-all", authed(s.handleLogoutAll))
	s.router.Handle("GET /api/v1/auth/sessions", authed(s.handleListSessions))
	s.router.Handle("DELETE /api/v1/auth/sessions/{id}", authed(s.handleRevokeSession))

	// Profile endpoints (authenticated)
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))
	s.router.Handle("PATCH /api/v1/me", authed(s.handleUpdateMe))
	s.router.Handle("POST /api/v1/me/password", authed(s.handleChangePassword))
}

// wrap applies the global middleware chain, outermost first.
func (s *Server) wrap(h http.Handler) http.Handler {
	h = NewCORSMiddleware(s.corsOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger, s.metrics).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

func (s *Server) onRateLimited(r *http.Request, key string) {
	s.logger.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
	if s.metrics != nil {
		s.metrics.RecordRateLimited()
	}
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
