package collection

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reelshelf/reelshelf/internal/catalog"
)

// Handlers provides HTTP handlers for collection operations.
type Handlers struct {
	store *Store
}

// NewHandlers creates new collection handlers.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers the collection routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Add)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.GET("/:id/membership", h.Membership)
	g.DELETE("/:id", h.Remove)
	g.POST("/:id/watched", h.ToggleWatched)
}

// AddResponse reports the outcome of an add request.
type AddResponse struct {
	Added bool  `json:"added"`
	Movie Movie `json:"movie"`
}

// List returns the collection, optionally narrowed by watched state.
// GET /api/v1/collection
func (h *Handlers) List(c echo.Context) error {
	var watched *bool
	if raw := c.QueryParam("watched"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "watched must be true or false")
		}
		watched = &v
	}
	return c.JSON(http.StatusOK, h.store.Filter(watched))
}

// Stats returns watched/unwatched counts.
// GET /api/v1/collection/stats
func (h *Handlers) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Stats())
}

// Get returns a single saved movie.
// GET /api/v1/collection/:id
func (h *Handlers) Get(c echo.Context) error {
	movie, ok := h.store.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "movie not in collection")
	}
	return c.JSON(http.StatusOK, movie)
}

// Add saves a catalog movie. A duplicate answers 200 with added=false.
// POST /api/v1/collection
func (h *Handlers) Add(c echo.Context) error {
	var input catalog.Movie
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	input.ID = strings.TrimSpace(input.ID)
	if input.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	added := h.store.Add(c.Request().Context(), input)
	movie, _ := h.store.Get(input.ID)

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, AddResponse{Added: added, Movie: movie})
}

// Membership reports whether a movie is saved.
// GET /api/v1/collection/:id/membership
func (h *Handlers) Membership(c echo.Context) error {
	id := c.Param("id")
	return c.JSON(http.StatusOK, map[string]any{
		"id":           id,
		"inCollection": h.store.IsMember(id),
	})
}

// Remove deletes a movie. Unknown ids succeed.
// DELETE /api/v1/collection/:id
func (h *Handlers) Remove(c echo.Context) error {
	h.store.Remove(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// ToggleWatched flips the watched flag.
// POST /api/v1/collection/:id/watched
func (h *Handlers) ToggleWatched(c echo.Context) error {
	movie, ok := h.store.ToggleWatched(c.Request().Context(), c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "movie not in collection")
	}
	return c.JSON(http.StatusOK, movie)
}
