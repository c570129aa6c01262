// Package server provides the gwguard HTTP server and its routes.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avgwguard/internal/admission"
	"github.com/vyrodovalexey/avgwguard/internal/auth/ethsig"
	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
	"github.com/vyrodovalexey/avgwguard/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Server is the main gwguard HTTP server.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	gate       *middleware.Gate
	store      admission.Store
	verifier   *ethsig.Verifier
	logger     observability.Logger
	metrics    *observability.Metrics
	admMetrics *admission.Metrics
	running    atomic.Bool
	errCh      chan error
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorded for HTTP requests.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithAdmissionMetrics sets the metrics recorded by the admission gate.
func WithAdmissionMetrics(metrics *admission.Metrics) Option {
	return func(s *Server) {
		s.admMetrics = metrics
	}
}

// New creates a server with its middleware chain and routes wired.
func New(cfg *config.Config, store admission.Store, verifier *ethsig.Verifier, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("admission store is required")
	}
	if verifier == nil {
		verifier = ethsig.NewVerifier()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		cfg:      cfg,
		store:    store,
		verifier: verifier,
		logger:   observability.NopLogger(),
		errCh:    make(chan error, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s.gate = middleware.NewGate(store,
		middleware.GateSettings{
			Enabled:   cfg.Admission.Gate.Enabled,
			SkipPaths: cfg.Admission.Gate.SkipPaths,
		},
		middleware.WithGateLogger(s.logger),
		middleware.WithGateMetrics(s.admMetrics),
	)

	engine.Use(middleware.Recovery(s.logger))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger:          s.logger,
		SkipHealthCheck: true,
	}))
	engine.Use(middleware.HTTPMetrics(s.metrics))
	if cfg.Server.MaxRequestBodySize > 0 {
		engine.Use(maxRequestBodySize(cfg.Server.MaxRequestBodySize))
	}
	engine.Use(s.gate.Handler())

	s.engine = engine
	s.registerRoutes()

	return s, nil
}

// maxRequestBodySize returns a middleware that limits request body size.
func maxRequestBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// registerRoutes wires the HTTP surface.
func (s *Server) registerRoutes() {
	s.engine.POST("/ip-status", s.handleUpsertStatuses)
	s.engine.GET("/ip-status", s.handleListStatuses)
	s.engine.POST("/auth/verify", s.handleVerify)
	s.engine.GET("/live", s.handleLive)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

// Handler returns the HTTP handler. Tests drive it directly through
// httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// UpdateGateSettings swaps the admission gate settings at runtime.
func (s *Server) UpdateGateSettings(settings middleware.GateSettings) {
	s.gate.UpdateSettings(settings)
	s.logger.Info("admission gate settings updated",
		observability.Bool("enabled", settings.Enabled),
		observability.Int("skipPaths", len(settings.SkipPaths)),
	)
}

// GateSettings returns the current admission gate settings.
func (s *Server) GateSettings() middleware.GateSettings {
	return s.gate.Settings()
}

// Start binds the listener and begins serving in the background. It
// returns once the listener is bound; serve failures are delivered on
// Err.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	addr := s.Addr()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.Server.ReadTimeout.Duration(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:       s.cfg.Server.IdleTimeout.Duration(),
		MaxHeaderBytes:    1 << 20,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.running.Store(true)

	s.logger.Info("http server started",
		observability.String("address", addr),
		observability.Bool("gateEnabled", s.gate.Settings().Enabled),
	)

	go s.serve(ln)

	return nil
}

// serve runs the HTTP server until it is shut down.
func (s *Server) serve(ln net.Listener) {
	err := s.httpServer.Serve(ln)
	s.running.Store(false)

	if err != nil && err != http.ErrServerClosed {
		s.logger.Error("http server error", observability.Error(err))
		select {
		case s.errCh <- err:
		default:
		}
	}
}

// Err returns the channel carrying fatal serve errors.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.logger.Info("stopping http server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("failed to close server: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	s.running.Store(false)

	s.logger.Info("http server stopped")
	return nil
}

// IsRunning returns true if the server is accepting requests.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}
