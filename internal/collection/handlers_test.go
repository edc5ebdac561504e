package collection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelshelf/reelshelf/internal/storage"
)

func setupHandlers(t *testing.T) (*echo.Echo, *Store) {
	t.Helper()
	store, _ := newTestStore(t, storage.NewMemory())
	e := echo.New()
	NewHandlers(store).RegisterRoutes(e.Group("/api/v1/collection"))
	return e, store
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_Add(t *testing.T) {
	e, store := setupHandlers(t)

	rec := do(e, http.MethodPost, "/api/v1/collection",
		`{"id":"603","title":"The Matrix","poster_path":"/m.jpg","release_date":"1999-03-30","vote_average":8.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AddResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Added)
	assert.Equal(t, "603", resp.Movie.ID)
	require.NotNil(t, resp.Movie.PosterPath)
	assert.Equal(t, "/m.jpg", *resp.Movie.PosterPath)
	assert.True(t, store.IsMember("603"))

	rec = do(e, http.MethodPost, "/api/v1/collection", `{"id":"603","title":"The Matrix"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Added)
	assert.Equal(t, 1, store.Len())
}

func TestHandlers_AddValidation(t *testing.T) {
	e, store := setupHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"title":"x"}`},
		{"blank id", `{"id":"  ","title":"x"}`},
		{"missing title", `{"id":"1"}`},
		{"malformed", `{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/v1/collection", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, store.Len())
}

func TestHandlers_ListAndFilter(t *testing.T) {
	e, store := setupHandlers(t)
	ctx := context.Background()
	store.Add(ctx, movie("1", "One"))
	store.Add(ctx, movie("2", "Two"))
	store.ToggleWatched(ctx, "1")

	var list []Movie
	rec := do(e, http.MethodGet, "/api/v1/collection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = do(e, http.MethodGet, "/api/v1/collection?watched=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)

	rec = do(e, http.MethodGet, "/api/v1/collection?watched=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_EmptyListIsArray(t *testing.T) {
	e, _ := setupHandlers(t)

	rec := do(e, http.MethodGet, "/api/v1/collection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandlers_Stats(t *testing.T) {
	e, store := setupHandlers(t)
	store.Add(context.Background(), movie("1", "One"))

	rec := do(e, http.MethodGet, "/api/v1/collection/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"watched":0,"unwatched":1}`, rec.Body.String())
}

func TestHandlers_Membership(t *testing.T) {
	e, store := setupHandlers(t)
	store.Add(context.Background(), movie("1", "One"))

	rec := do(e, http.MethodGet, "/api/v1/collection/1/membership", "")
	assert.JSONEq(t, `{"id":"1","inCollection":true}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/v1/collection/2/membership", "")
	assert.JSONEq(t, `{"id":"2","inCollection":false}`, rec.Body.String())
}

func TestHandlers_Get(t *testing.T) {
	e, store := setupHandlers(t)
	store.Add(context.Background(), movie("1", "One"))

	rec := do(e, http.MethodGet, "/api/v1/collection/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/collection/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_RemoveIsIdempotent(t *testing.T) {
	e, store := setupHandlers(t)
	store.Add(context.Background(), movie("1", "One"))

	rec := do(e, http.MethodDelete, "/api/v1/collection/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, store.IsMember("1"))

	rec = do(e, http.MethodDelete, "/api/v1/collection/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlers_ToggleWatched(t *testing.T) {
	e, store := setupHandlers(t)
	store.Add(context.Background(), movie("1", "One"))

	rec := do(e, http.MethodPost, "/api/v1/collection/1/watched", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Watched)

	rec = do(e, http.MethodPost, "/api/v1/collection/missing/watched", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
