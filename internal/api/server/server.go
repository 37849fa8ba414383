package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playware/inventory-service/internal/adapter"
	"github.com/playware/inventory-service/internal/api/middleware"
	"github.com/playware/inventory-service/internal/api/rest"
	"github.com/playware/inventory-service/internal/api/shared/executor"
	"github.com/playware/inventory-service/internal/logger"
	"github.com/playware/inventory-service/internal/messaging"
	"github.com/playware/inventory-service/internal/metrics"
	"github.com/playware/inventory-service/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	clock      adapter.Clock
	publisher  messaging.Publisher
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// New creates a new API server. publisher may be nil to disable grant event
// publishing.
func New(cfg Config, s store.Store, clock adapter.Clock, publisher messaging.Publisher, m *metrics.Metrics) *Server {
	return &Server{
		config:    cfg,
		store:     s,
		clock:     clock,
		publisher: publisher,
		metrics:   m,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Monitoring(s.metrics))
	router.Use(middleware.SetupCORS())

	exec := executor.NewExecutor(s.store, s.clock, s.publisher)
	restHandler := rest.NewHandler(exec)
	rest.SetupRoutes(router, restHandler, s.config.Auth, s.metrics)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server", zap.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
