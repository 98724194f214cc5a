// Package api serves the daemon's HTTP control surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/usecase"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	UnlockRPS       float64
	UnlockBurst     int
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "127.0.0.1:7878",
		UnlockRPS:       1,
		UnlockBurst:     5,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server exposes the engine over HTTP.
type Server struct {
	config ServerConfig
	engine *usecase.Engine
	router *gin.Engine
	logger *zap.Logger
}

// NewServer builds the router. It does not listen until Run.
func NewServer(config ServerConfig, engine *usecase.Engine, logger *zap.Logger) *Server {
	defaults := DefaultServerConfig()
	if config.UnlockRPS <= 0 {
		config.UnlockRPS = defaults.UnlockRPS
	}
	if config.UnlockBurst <= 0 {
		config.UnlockBurst = defaults.UnlockBurst
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		config: config,
		engine: engine,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.engine.Metrics().Registry(), promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/foreground", s.foreground)
	v1.GET("/session", s.session)

	apps := v1.Group("/apps/:id")
	apps.GET("/blocked", s.blocked)
	apps.POST("/override", s.override)
	apps.POST("/unlock", RateLimit(s.config.UnlockRPS, s.config.UnlockBurst), s.unlock)

	rules := v1.Group("/rules")
	rules.GET("", s.listRules)
	rules.GET("/:id", s.getRule)
	rules.PUT("/:id", s.putRule)
	rules.PATCH("/:id/active", s.setActive)
	rules.PUT("/:id/schedule", s.setSchedule)
	rules.PUT("/:id/secret", s.setSecret)
	rules.DELETE("/:id", s.deleteRule)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Name implements daemon.Service.
func (s *Server) Name() string {
	return "http"
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("http API listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
