// Package server implements the local dashboard bridge: a loopback HTTP
// server the browser dashboard talks to, which holds the session manager
// and proxies authenticated calls to the backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitton/agentdash/internal/api"
	appconfig "github.com/mwhitton/agentdash/internal/config"
	"github.com/mwhitton/agentdash/internal/session"
	"github.com/mwhitton/agentdash/pkg/health"
	"github.com/mwhitton/agentdash/pkg/httpmiddleware"
	"github.com/mwhitton/agentdash/pkg/logger"
	"github.com/mwhitton/agentdash/pkg/metrics"
)

// Server encapsulates the bridge HTTP server and its dependencies.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	metrics *metrics.Metrics
	manager *session.Manager
	client  *api.Client
	checker *health.Checker

	httpServer *http.Server
	cancel     context.CancelFunc
}

// New creates a Server. The session manager and API client are built by
// the composition root and injected here.
func New(cfg *appconfig.AppConfig, log logger.Logger, m *metrics.Metrics, manager *session.Manager, client *api.Client) (*Server, error) {
	if cfg == nil || log == nil || m == nil || manager == nil || client == nil {
		return nil, fmt.Errorf("all server dependencies are required")
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		manager: manager,
		client:  client,
	}
	s.checker = health.New(
		health.WithTimeout(cfg.Monitoring.HealthCheckTimeout),
		health.WithLogger(log),
	)
	s.checker.AddCheck(health.NewCheckFunc("session", s.sessionCheck))
	s.checker.AddCheck(health.NewCheckFunc("backend", s.backendCheck))

	router := chi.NewRouter()
	mwConfig := httpmiddleware.DefaultConfig()
	mwConfig.Logger = log
	mwConfig.EnableLogging = true
	mwConfig.Timeout = cfg.Bridge.RequestTimeout
	if len(cfg.Bridge.CORSAllowedOrigins) > 0 {
		corsConfig := httpmiddleware.DefaultCORSConfig()
		corsConfig.AllowedOrigins = cfg.Bridge.CORSAllowedOrigins
		mwConfig.CORS = &corsConfig
	}
	httpmiddleware.ApplyToRouter(router, mwConfig)
	if cfg.Monitoring.MetricsEnabled {
		router.Use(m.HTTPMiddleware())
	}
	s.registerRoutes(router)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", cfg.Bridge.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Run starts the bridge and blocks until shutdown. The automatic token
// refresh timer is armed for the lifetime of the server.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	s.manager.ScheduleAutomaticRefresh()
	defer s.manager.StopAutomaticRefresh()

	var metricsErr chan error
	if s.cfg.Monitoring.MetricsEnabled {
		metricsErr = s.metrics.Listen(s.cfg.Monitoring.MetricsPort)
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info("Dashboard bridge listening", logger.StringField("addr", s.httpServer.Addr))
		serverErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server failed: %w", err)
		}
	case err := <-metricsErrOrNever(metricsErr):
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	s.log.Info("Shutting down dashboard bridge")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("bridge shutdown error", logger.ErrorField(err))
	}
	if s.cfg.Monitoring.MetricsEnabled {
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			s.log.Error("metrics shutdown error", logger.ErrorField(err))
		}
	}
	return nil
}

// Shutdown stops the server from another goroutine.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func metricsErrOrNever(ch chan error) chan error {
	if ch != nil {
		return ch
	}
	return make(chan error)
}

func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))
		if s.cancel != nil {
			s.cancel()
		}

		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}

func (s *Server) sessionCheck(context.Context) error {
	if !s.manager.HasValidAccessToken() {
		if _, ok := s.manager.CurrentSnapshot(); !ok {
			return fmt.Errorf("no active session")
		}
	}
	return nil
}

func (s *Server) backendCheck(ctx context.Context) error {
	if !s.manager.HasValidAccessToken() {
		return nil // unauthenticated bridge is still healthy
	}
	_, err := s.client.ListStores(ctx)
	return err
}
