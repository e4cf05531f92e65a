// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config              ServerConfig
	httpServer          *http.Server
	router              *gin.Engine
	requestService      service.RequestService
	treatmentService    service.TreatmentService
	budgetService       service.BudgetService
	notificationService service.NotificationService
	users               port.UserRepository
	logger              Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	requestService service.RequestService,
	treatmentService service.TreatmentService,
	budgetService service.BudgetService,
	notificationService service.NotificationService,
	users port.UserRepository,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:              config,
		router:              router,
		requestService:      requestService,
		treatmentService:    treatmentService,
		budgetService:       budgetService,
		notificationService: notificationService,
		users:               users,
		logger:              logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.requestService, s.treatmentService, s.budgetService, s.notificationService, s.logger)

	// Health check
	s.router.GET("/healthz", handlers.HealthCheck)

	// API routes require an authenticated actor
	api := s.router.Group("/api")
	api.Use(s.actorMiddleware())
	{
		api.POST("/solicitudes/drafts", handlers.CreateDraft)
		api.PATCH("/solicitudes/:id/draft", handlers.UpdateDraft)
		api.PUT("/solicitudes/:id", handlers.Submit)
		api.POST("/solicitudes", handlers.CreateAndSubmit)
		api.GET("/solicitudes", handlers.ListRequests)
		api.GET("/solicitudes/:id", handlers.GetRequest)
		api.POST("/solicitudes/:id/decidir", handlers.Decide)
		api.PATCH("/solicitudes/:id/tomar", handlers.Claim)
		api.PATCH("/solicitudes/:id/liberar", handlers.Release)
		api.GET("/solicitudes/:id/tratamiento", handlers.ListTreatment)
		api.PATCH("/solicitudes/:id/tratamiento/items", handlers.UpsertTreatment)
		api.POST("/solicitudes/:id/finalizar", handlers.FinalizeTreatment)
		api.POST("/solicitudes/:id/rechazar", handlers.RejectTreatment)
		api.PATCH("/solicitudes/:id/cancel", handlers.RequestCancel)
		api.POST("/solicitudes/:id/decidir_cancelacion", handlers.DecideCancel)

		api.POST("/presupuestos/incorporaciones", handlers.RequestIncrease)
		api.POST("/presupuestos/incorporaciones/:id/resolver", handlers.ResolveIncrease)
		api.GET("/presupuestos/incorporaciones", handlers.ListIncreases)
		api.GET("/presupuestos/saldo", handlers.GetLedger)

		api.GET("/notificaciones", handlers.ListNotifications)
		api.PATCH("/notificaciones/:id/leida", handlers.MarkNotificationRead)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
