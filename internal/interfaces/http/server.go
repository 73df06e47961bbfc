// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitergin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/garyjia/timesheet-workflow/internal/application/service"
	"github.com/garyjia/timesheet-workflow/internal/application/workflow"
	"github.com/garyjia/timesheet-workflow/pkg/utils"
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
	CORSOrigins  []string
	// RateLimit is a limiter rate such as "300-M"; empty disables limiting
	RateLimit string
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

// HealthFunc reports whether the backing components are usable
type HealthFunc func() (healthy bool, details interface{})

// Services are the application entry points served over HTTP
type Services struct {
	Submission service.SubmissionService
	TimeLogs   service.TimeLogService
	Finance    service.FinanceService
	Approvals  workflow.ApprovalEngine
	Health     HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// The gin mode is left to the caller.
func NewServer(config ServerConfig, services Services, logger Logger) (*Server, error) {
	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(services, logger),
		logger:   logger,
	}

	if err := server.setupMiddleware(); err != nil {
		return nil, err
	}
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() error {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:  s.config.CORSOrigins,
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", HeaderEmployeeID, HeaderOrganizationID},
			ExposeHeaders: []string{"Content-Length"},
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			MaxAge:        12 * time.Hour,
		}))
	}

	if s.config.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(s.config.RateLimit)
		if err != nil {
			return fmt.Errorf("invalid rate limit %q: %w", s.config.RateLimit, err)
		}
		s.router.Use(limitergin.NewMiddleware(limiter.New(memory.NewStore(), rate)))
	}
	return nil
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// identityMiddleware rejects malformed caller identity headers. An absent
// header passes through; handlers decide whether identity is required.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for kind, header := range map[string]string{"employee id": HeaderEmployeeID, "organization id": HeaderOrganizationID} {
			value := strings.TrimSpace(c.GetHeader(header))
			if value == "" {
				continue
			}
			if err := utils.ValidateIdentifier(kind, value); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, Response{
					Success: false,
					Error:   err.Error(),
					Code:    CodeInvalidRequest,
				})
				return
			}
		}
		c.Next()
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(identityMiddleware())
	{
		api.POST("/timesheets/validate", h.ValidateTimesheet)
		api.POST("/timesheets", h.SubmitTimesheet)

		api.POST("/timelogs/clock-in", h.ClockIn)
		api.POST("/timelogs/clock-out", h.ClockOut)
		api.PUT("/timelogs/draft", h.SaveDraft)
		api.GET("/timelogs/:id", h.GetTimeLog)

		api.GET("/approvals", h.ListApprovals)
		api.GET("/approvals/:id", h.GetApproval)
		api.GET("/approvals/:id/history", h.GetApprovalHistory)
		api.POST("/approvals/:id/approve", h.Approve)
		api.POST("/approvals/:id/clarification", h.RequestClarification)
		api.POST("/approvals/:id/clarification-response", h.SubmitClarification)

		api.POST("/finance/annual-figures", h.ComputeAnnualFigures)
		api.POST("/finance/assignment-report", h.ComputeAssignmentReport)
	}
}

// Start starts the HTTP server and blocks until ctx is done
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

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
