package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/collection"
	"github.com/reelshelf/reelshelf/internal/config"
	"github.com/reelshelf/reelshelf/internal/logger"
	"github.com/reelshelf/reelshelf/internal/notification"
	"github.com/reelshelf/reelshelf/internal/recommend"
	"github.com/reelshelf/reelshelf/internal/storage"
	"github.com/reelshelf/reelshelf/internal/testutil"
)

type stubSource struct {
	movies []catalog.Movie
}

func (s *stubSource) SearchMovies(context.Context, string) ([]catalog.Movie, error) {
	return s.movies, nil
}

func (s *stubSource) GetMovie(_ context.Context, id string) (*catalog.Movie, error) {
	for _, m := range s.movies {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *stubSource) PopularMovies(context.Context) ([]catalog.Movie, error) {
	return s.movies, nil
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("database is locked") }

type schemaVersion int64

func (v schemaVersion) Version() (int64, error) { return int64(v), nil }

type stubLogs struct {
	entries []logger.LogEntry
	path    string
}

func (s stubLogs) GetRecentLogs(level string) []logger.LogEntry {
	var out []logger.LogEntry
	for _, e := range s.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (s stubLogs) GetLogFilePath() string { return s.path }

type testServer struct {
	*Server
	store    *collection.Store
	notices  *notification.Recorder
	sessions *recommend.Sessions
}

func setupTestServer(t *testing.T, movies ...catalog.Movie) *testServer {
	t.Helper()
	log := testutil.NopLogger()
	rec := notification.NewRecorder()

	cat := catalog.NewService(&stubSource{movies: movies}, rec, catalog.DefaultBreakerConfig(), log)
	store := collection.NewStore(context.Background(), storage.NewMemory(), rec, log)
	engine := recommend.NewEngine(recommend.DefaultQuestions(), cat, store, log, recommend.WithSeed(3))
	sessions := recommend.NewSessions(engine, time.Minute)

	cfg := config.Default()
	server := NewServer(cfg, Services{
		Schema:     schemaVersion(1),
		Catalog:    cat,
		Collection: store,
		Quiz:       sessions,
		Logs: stubLogs{entries: []logger.LogEntry{
			{Level: "info", Message: "hello"},
			{Level: "error", Message: "boom"},
		}},
	}, log)

	return &testServer{Server: server, store: store, notices: rec, sessions: sessions}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Errorf("HealthCheck status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("HealthCheck status = %q, want %q", response["status"], "ok")
	}
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	server := NewServer(config.Default(), Services{DB: failingPinger{}}, testutil.NopLogger())

	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestHealthCheck_SQLite(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	server := NewServer(config.Default(), Services{DB: tdb.Conn, Schema: tdb.DB}, testutil.NopLogger())
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, int64(1), status.SchemaVersion)
}

func TestGetStatus(t *testing.T) {
	ts := setupTestServer(t)
	ts.store.Add(context.Background(), catalog.Movie{ID: "1", Title: "One"})
	ts.sessions.Create()

	rec := ts.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, config.Version, status.Version)
	assert.Equal(t, 1, status.Collection.Total)
	assert.Equal(t, 1, status.QuizSessions)
	assert.Equal(t, int64(1), status.SchemaVersion)
	assert.NotEmpty(t, status.StartTime)
}

func TestSecurityHeaders(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/collection", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecentLogs(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/system/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []logger.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = ts.do(http.MethodGet, "/api/v1/system/logs?level=error", "")
	var errs []logger.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)

	rec = ts.do(http.MethodGet, "/api/v1/system/logs/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelshelf.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"level\":\"info\"}\n"), 0o600))

	server := NewServer(config.Default(), Services{Logs: stubLogs{path: path}}, testutil.NopLogger())
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/system/logs/download", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reelshelf.log")
}

// Browsing the catalog, saving a movie, and asking the quiz for a
// recommendation: the saved movie is never recommended while another
// result exists.
func TestCatalogCollectionQuizFlow(t *testing.T) {
	ts := setupTestServer(t,
		catalog.Movie{ID: "10", Title: "Ten"},
		catalog.Movie{ID: "20", Title: "Twenty"},
	)

	rec := ts.do(http.MethodGet, "/api/v1/catalog/movies/10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/collection", rec.Body.String())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, ts.store.IsMember("10"))

	last, ok := ts.notices.Last()
	require.True(t, ok)
	assert.Equal(t, notification.SeveritySuccess, last.Severity)

	for i := 0; i < 10; i++ {
		var snap recommend.Snapshot
		rec = ts.do(http.MethodPost, "/api/v1/quiz/sessions", "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		base := "/api/v1/quiz/sessions/" + snap.ID

		for _, opt := range []string{"excited", "long", "friends"} {
			rec = ts.do(http.MethodPost, base+"/answers", `{"optionId":"`+opt+`"}`)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		require.Eventually(t, func() bool {
			var current recommend.Snapshot
			r := ts.do(http.MethodGet, base, "")
			return json.Unmarshal(r.Body.Bytes(), &current) == nil && current.State == recommend.StateResult
		}, time.Second, 5*time.Millisecond)

		rec = ts.do(http.MethodGet, base, "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		require.NotNil(t, snap.Result)
		assert.Equal(t, "20", snap.Result.ID)
	}
}

func TestProxyRequestBlocked(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.RequestURI = "http://example.com/"
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
