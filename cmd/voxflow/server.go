package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/api"
	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/config"
	"github.com/voxflow/voxflow/emr"
	"github.com/voxflow/voxflow/internal/metrics"
	"github.com/voxflow/voxflow/internal/server"
	"github.com/voxflow/voxflow/internal/session"
	"github.com/voxflow/voxflow/orchestrator"
)

// Server wires the engine and its dependencies behind one HTTP server.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *server.Manager
	store   session.Store
}

// NewServer builds all components from the configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	emrClient, err := newEMRClient(cfg.EMR, logger)
	if err != nil {
		return nil, fmt.Errorf("build emr client: %w", err)
	}

	registry := capability.NewRegistry(logger)
	if err := emr.RegisterAll(registry, emrClient, logger); err != nil {
		return nil, fmt.Errorf("register capabilities: %w", err)
	}

	store, err := session.NewStore(cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("build session store: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.Metrics.Namespace, promReg, logger)

	engine := orchestrator.NewEngine(registry, cfg.Engine, logger,
		orchestrator.WithMetrics(collector),
		orchestrator.WithSessionStore(store),
	)

	handler := api.NewHandler(engine, registry, collector, logger)
	routed := Chain(api.NewRouter(handler, promReg),
		Recovery(logger),
		RequestID(),
		RequestLogger(logger),
	)

	manager := server.NewManager(routed, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		store:   store,
	}, nil
}

// newEMRClient selects the configured EMR backend. Without a base URL
// the in-memory fake serves development and demos.
func newEMRClient(cfg emr.Config, logger *zap.Logger) (emr.Client, error) {
	if cfg.BaseURL == "" {
		logger.Warn("no EMR base URL configured, using the built-in fake")
		return emr.NewFake(), nil
	}
	return emr.NewRESTClient(cfg, logger)
}

// Start begins serving without blocking.
func (s *Server) Start() error {
	return s.manager.Start()
}

// WaitForShutdown blocks until a signal or serve error, then cleans up.
func (s *Server) WaitForShutdown() {
	s.manager.WaitForShutdown()
	s.Shutdown()
}

// Shutdown stops the server and releases resources.
func (s *Server) Shutdown() {
	if err := s.manager.Shutdown(context.Background()); err != nil {
		s.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("session store close error", zap.Error(err))
	}
}
