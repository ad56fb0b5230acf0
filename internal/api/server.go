package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/api/handlers"
	"github.com/nataliethinks/o2c-integration-hub/internal/auth"
	"github.com/nataliethinks/o2c-integration-hub/internal/metrics"
	"github.com/nataliethinks/o2c-integration-hub/internal/services"
)

// Server represents the HTTP server
type Server struct {
	config      config.Config
	router      *gin.Engine
	httpServer  *http.Server
	producer    *services.ProducerService
	authService *auth.Service
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, producer *services.ProducerService, authService *auth.Service) *Server {
	server := &Server{
		config:      cfg,
		producer:    producer,
		authService: authService,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	// Register handlers
	authHandler := handlers.NewAuthHandler(s.authService)
	ordersHandler := handlers.NewOrdersHandler(s.producer)
	adminHandler := handlers.NewAdminHandler(s.config.Broker)

	router.POST("/login", authHandler.HandleLogin)
	router.POST("/orders",
		s.authService.RequireRoles(auth.RoleAdmin, auth.RoleUser),
		ordersHandler.HandleCreateOrder)
	router.GET("/admin/queue",
		s.authService.RequireRoles(auth.RoleAdmin),
		adminHandler.HandleQueueInfo)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", metrics.Handler())

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
