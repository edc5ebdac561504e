package catalog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Handlers exposes the catalog over HTTP. Failures have already been
// reported through the notifier, so handlers only map them to a status.
type Handlers struct {
	catalog Catalog
}

// NewHandlers creates new catalog handlers.
func NewHandlers(c Catalog) *Handlers {
	return &Handlers{catalog: c}
}

// RegisterRoutes registers the catalog routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/popular", h.Popular)
	g.GET("/movies/:id", h.Get)
}

// Search returns the first page of results for q.
// GET /api/v1/catalog/search?q=
func (h *Handlers) Search(c echo.Context) error {
	res := h.catalog.SearchByText(c.Request().Context(), c.QueryParam("q"))
	if !res.OK() {
		return echo.NewHTTPError(statusFor(res.Err), "Failed to fetch movies")
	}
	return c.JSON(http.StatusOK, res.Value)
}

// Popular returns the catalog's popular movies.
// GET /api/v1/catalog/popular
func (h *Handlers) Popular(c echo.Context) error {
	res := h.catalog.GetPopular(c.Request().Context())
	if !res.OK() {
		return echo.NewHTTPError(statusFor(res.Err), "Failed to fetch popular movies")
	}
	return c.JSON(http.StatusOK, res.Value)
}

// Get returns one movie's details.
// GET /api/v1/catalog/movies/:id
func (h *Handlers) Get(c echo.Context) error {
	res := h.catalog.GetByID(c.Request().Context(), c.Param("id"))
	if !res.OK() {
		return echo.NewHTTPError(statusFor(res.Err), "Failed to fetch movie details")
	}
	if res.Value == nil {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found")
	}
	return c.JSON(http.StatusOK, res.Value)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
