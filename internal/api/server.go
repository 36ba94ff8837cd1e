package api

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/bearwatch/internal/api/handlers"
	mw "github.com/tphakala/bearwatch/internal/api/middleware"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
)

// Server is the bearwatch HTTP server.
// It owns the Echo instance, middleware stack and API routes.
type Server struct {
	echo       *echo.Echo
	config     *Config
	app        *app.App
	metrics    *observability.Metrics
	controller *handlers.Controller
	handlerOps []handlers.Option
	log        logger.Logger
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithConfig replaces the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHandlerOptions passes options to the API controller.
func WithHandlerOptions(opts ...handlers.Option) ServerOption {
	return func(s *Server) {
		s.handlerOps = append(s.handlerOps, opts...)
	}
}

// New creates a new HTTP server on top of the application services.
func New(application *app.App, opts ...ServerOption) (*Server, error) {
	s := &Server{
		app: application,
		log: GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = ConfigFromSettings(application.Settings)
	}
	if err := s.config.Validate(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Component("api").
			Build()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.controller = handlers.New(application, s.handlerOps...)
	s.echo.HTTPErrorHandler = s.controller.HTTPErrorHandler

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.Duration("scan_cooldown", s.config.ScanCooldown),
		logger.Bool("metrics", s.metricsEnabled()),
		logger.Bool("debug", s.config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestID())

	var httpMetrics *metrics.HTTPMetrics
	if s.metrics != nil {
		httpMetrics = s.metrics.HTTP
	}
	s.echo.Use(mw.NewTelemetry(httpMetrics))

	// Health probes and scrapes are too chatty for the request log
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		p := c.Path()
		return p == "/api/health" || p == s.config.MetricsPath
	}))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.controller.Register(s.echo.Group("/api"), mw.NewCooldown(s.config.ScanCooldown))

	if s.metricsEnabled() {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

func (s *Server) metricsEnabled() bool {
	return s.config.MetricsEnabled && s.metrics != nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Address()

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if !ok {
			return nil
		}
		return errors.New(fmt.Errorf("server error: %w", err)).
			Category(errors.CategoryNetwork).
			Component("api").
			Context("address", addr).
			Build()
	case <-ctx.Done():
		s.log.Info("Shutdown signal received, initiating graceful shutdown")
		return s.Shutdown()
	}
}

// StartWithGracefulShutdown serves until SIGINT or SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Shutdown gracefully stops the server and the application services.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		errs = append(errs, fmt.Errorf("shutdown error: %w", err))
	}
	if err := s.app.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("Server shutdown complete", logger.Duration("timeout", s.config.ShutdownTimeout))
	return errors.Join(errs...)
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
