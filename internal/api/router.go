package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/metrics"
	"github.com/Cyclone1070/devrun/internal/orchestrator/adapter"
	"github.com/Cyclone1070/devrun/internal/supervisor"
)

// Server exposes the tool adapters over HTTP.
type Server struct {
	echo  *echo.Echo
	sup   *supervisor.Supervisor
	tools []adapter.Tool
	log   logrus.FieldLogger
}

// NewServer creates a new API server with all routes configured. An empty
// apiKey disables authentication.
func NewServer(sup *supervisor.Supervisor, apiKey string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:  e,
		sup:   sup,
		tools: adapter.All(sup),
		log:   sup.Logger().WithField("component", "api"),
	}

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(sup.Metrics().EchoMiddleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logrus.Fields{
				"method":     v.Method,
				"path":       v.URIPath,
				"status":     v.Status,
				"latency":    v.Latency,
				"request_id": v.RequestID,
			}).Debug("request")
			return nil
		},
	}))

	// Health and metrics (no auth)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(sup.Gatherer())))

	v1 := e.Group("/v1")
	v1.Use(APIKeyMiddleware(apiKey))
	v1.GET("/tools", s.listTools)
	v1.POST("/tools/:name", s.callTool)
	v1.GET("/processes", s.listProcesses)

	return s
}

// Handler returns the router for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server on the given address. It returns nil after a
// graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
