package catalog

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, src Source, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	NewHandlers(NewService(src, nil, DefaultBreakerConfig(), zerolog.Nop())).RegisterRoutes(e.Group("/api/v1/catalog"))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_Search(t *testing.T) {
	src := &fakeSource{movies: []Movie{{ID: "1", Title: "Up"}}}

	rec := serve(t, src, "/api/v1/catalog/search?q=up")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"1","title":"Up","poster_path":null,"release_date":"","overview":"","vote_average":0}]`, rec.Body.String())
	assert.Equal(t, "up", src.lastQuery)
}

func TestHandlers_SearchBlank(t *testing.T) {
	src := &fakeSource{}

	rec := serve(t, src, "/api/v1/catalog/search?q=%20")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Zero(t, src.searchCalls)
}

func TestHandlers_Popular_Failure(t *testing.T) {
	rec := serve(t, &fakeSource{err: errors.New("boom")}, "/api/v1/catalog/popular")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlers_Get(t *testing.T) {
	rec := serve(t, &fakeSource{movie: &Movie{ID: "603", Title: "The Matrix"}}, "/api/v1/catalog/movies/603")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, &fakeSource{err: ErrNotFound}, "/api/v1/catalog/movies/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeSource{err: ErrInvalidID}, "/api/v1/catalog/movies/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(gobreaker.ErrOpenState))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("x")))
}
