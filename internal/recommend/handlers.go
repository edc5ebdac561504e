package recommend

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for the recommendation quiz.
type Handlers struct {
	sessions *Sessions
}

// NewHandlers creates new quiz handlers.
func NewHandlers(sessions *Sessions) *Handlers {
	return &Handlers{sessions: sessions}
}

// RegisterRoutes registers the quiz routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/questions", h.Questions)
	g.POST("/sessions", h.Create)
	g.GET("/sessions/:id", h.Get)
	g.POST("/sessions/:id/answers", h.Answer)
	g.POST("/sessions/:id/reset", h.Reset)
	g.POST("/sessions/:id/close", h.Close)
}

// AnswerInput is the body of an answer request.
type AnswerInput struct {
	OptionID string `json:"optionId"`
}

// Questions returns the question set.
// GET /api/v1/quiz/questions
func (h *Handlers) Questions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.Engine().Questions())
}

// Create opens a quiz session.
// POST /api/v1/quiz/sessions
func (h *Handlers) Create(c echo.Context) error {
	s := h.sessions.Create()
	return c.JSON(http.StatusCreated, s.Snapshot())
}

// Get returns a session's current state. Clients poll this while loading.
// GET /api/v1/quiz/sessions/:id
func (h *Handlers) Get(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// Answer answers the current question.
// POST /api/v1/quiz/sessions/:id/answers
func (h *Handlers) Answer(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var input AnswerInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if input.OptionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "optionId is required")
	}

	snap, err := s.Answer(c.Request().Context(), input.OptionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownOption):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotAsking):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, snap)
}

// Reset restarts the quiz.
// POST /api/v1/quiz/sessions/:id/reset
func (h *Handlers) Reset(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Reset())
}

// Close schedules a delayed reset.
// POST /api/v1/quiz/sessions/:id/close
func (h *Handlers) Close(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.Close()
	return c.NoContent(http.StatusAccepted)
}

func (h *Handlers) session(c echo.Context) (*Session, error) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return s, nil
}
