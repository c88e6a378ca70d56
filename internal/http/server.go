// Package http serves the project API for wbsd.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/wbs/internal/logging"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/project"
	"github.com/fyrsmithlabs/wbs/internal/secrets"
)

// maxBodySize bounds request bodies such as outlines and fragments.
const maxBodySize = "4M"

// Server provides HTTP endpoints for wbsd.
type Server struct {
	echo     *echo.Echo
	projects project.Manager
	redactor *secrets.Redactor
	logger   *zap.Logger
	config   *Config
	metrics  *HTTPMetrics
	health   func() any
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// APIToken, when set, is required as a bearer token on mutating routes.
	APIToken string

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	// TopN and Labels are report defaults.
	TopN   int
	Labels priority.LabelSet
}

// Option configures a Server.
type Option func(*Server)

// WithRedactor scrubs task titles in rendered reports.
func WithRedactor(r *secrets.Redactor) Option {
	return func(s *Server) {
		s.redactor = r
	}
}

// WithHealth adds the value returned by fn to health responses.
func WithHealth(fn func() any) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// WithMetrics overrides the OpenTelemetry request metrics.
func WithMetrics(m *HTTPMetrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer creates a new HTTP server.
func NewServer(projects project.Manager, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if projects == nil {
		return nil, fmt.Errorf("project manager cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		projects: projects,
		logger:   logger,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewHTTPMetrics(logger)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(s.requestContext)
	e.Use(s.metrics.MetricsMiddleware())
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.APIToken != "" {
		e.Use(bearerAuth(cfg.APIToken))
	}

	s.registerRoutes()
	return s, nil
}

// requestContext logs each request and carries the request ID and logger
// in the request context.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)

		ctx := logging.WithRequestID(c.Request().Context(), reqID)
		ctx = logging.WithLogger(ctx, logging.Wrap(s.logger))
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", reqID),
		)
		return nil
	}
}

// rateLimiter limits requests per client IP.
func rateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = int(perSecond) + 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/health" },
		Store:   store,
	})
}

// bearerAuth requires the token on every method except GET and HEAD.
func bearerAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(c echo.Context) bool {
			m := c.Request().Method
			return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
		},
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
	})
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/projects", s.handleListProjects)
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects/:id", s.handleGetProject)
	v1.PATCH("/projects/:id", s.handleRenameProject)
	v1.DELETE("/projects/:id", s.handleDeleteProject)

	v1.PUT("/projects/:id/outline", s.handleImportOutline)
	v1.PUT("/projects/:id/fragments", s.handleImportFragments)
	v1.GET("/projects/:id/scores", s.handleScores)
	v1.GET("/projects/:id/quadrants", s.handleQuadrants)
	v1.GET("/projects/:id/top", s.handleTop)
	v1.POST("/projects/:id/complete", s.handleComplete)
	v1.GET("/projects/:id/report", s.handleReport)
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
