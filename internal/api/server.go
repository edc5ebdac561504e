//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/collection"
	"github.com/reelshelf/reelshelf/internal/config"
	"github.com/reelshelf/reelshelf/internal/recommend"
	"github.com/reelshelf/reelshelf/internal/scheduler"
	"github.com/reelshelf/reelshelf/internal/websocket"
)

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SchemaVersioner reports the applied database migration version.
type SchemaVersioner interface {
	Version() (int64, error)
}

// Services are the components the server exposes. Scheduler, Hub, Logs,
// DB and Schema may be nil; their routes are then omitted or report degraded.
type Services struct {
	Catalog    catalog.Catalog
	Collection *collection.Store
	Quiz       *recommend.Sessions
	Scheduler  *scheduler.Scheduler
	Hub        *websocket.Hub
	Logs       LogsProvider
	DB         Pinger
	Schema     SchemaVersioner
}

// Server handles HTTP requests for the ReelShelf API.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	svc       Services
	logger    zerolog.Logger
	startedAt time.Time
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, svc Services, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		svc:       svc,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	if s.svc.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.DB.PingContext(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Version        string           `json:"version"`
	StartTime      string           `json:"startTime"`
	Uptime         string           `json:"uptime"`
	Collection     collection.Stats `json:"collection"`
	QuizSessions   int              `json:"quizSessions"`
	Clients        int              `json:"clients"`
	SchemaVersion  int64            `json:"schemaVersion"`
	TMDBConfigured bool             `json:"tmdbConfigured"`
}

func (s *Server) getStatus(c echo.Context) error {
	resp := StatusResponse{
		Version:        config.Version,
		StartTime:      s.startedAt.Format(time.RFC3339),
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		TMDBConfigured: s.cfg != nil && s.cfg.TMDB.APIKey != "",
	}
	if s.svc.Collection != nil {
		resp.Collection = s.svc.Collection.Stats()
	}
	if s.svc.Quiz != nil {
		resp.QuizSessions = s.svc.Quiz.Len()
	}
	if s.svc.Hub != nil {
		resp.Clients = s.svc.Hub.ClientCount()
	}
	if s.svc.Schema != nil {
		version, err := s.svc.Schema.Version()
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read schema version")
		}
		resp.SchemaVersion = version
	}
	return c.JSON(http.StatusOK, resp)
}

func metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
