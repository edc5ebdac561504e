package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apimw "github.com/reelshelf/reelshelf/internal/api/middleware"
	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/collection"
	"github.com/reelshelf/reelshelf/internal/recommend"
	"github.com/reelshelf/reelshelf/internal/scheduler"
)

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())
	s.echo.Use(middleware.BodyLimit("1M"))
	s.echo.Use(apimw.ProxyRequestBlock())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", metricsHandler())
	if s.svc.Hub != nil {
		s.echo.GET("/ws", s.svc.Hub.HandleWebSocket)
	}

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	if s.svc.Catalog != nil {
		catalog.NewHandlers(s.svc.Catalog).RegisterRoutes(api.Group("/catalog"))
	}
	if s.svc.Collection != nil {
		collection.NewHandlers(s.svc.Collection).RegisterRoutes(api.Group("/collection"))
	}
	if s.svc.Quiz != nil {
		recommend.NewHandlers(s.svc.Quiz).RegisterRoutes(api.Group("/quiz"))
	}

	system := api.Group("/system")
	if s.svc.Logs != nil {
		NewLogsHandlers(s.svc.Logs).RegisterRoutes(system.Group("/logs"))
	}
	if s.svc.Scheduler != nil {
		scheduler.NewHandlers(s.svc.Scheduler).RegisterRoutes(system.Group("/scheduler"))
	}
}
