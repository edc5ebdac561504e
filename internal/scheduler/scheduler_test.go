package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduler_RegisterTask(t *testing.T) {
	s := newTestScheduler(t)

	cfg := TaskConfig{ID: "a", Name: "A", Cron: "*/5 * * * *", Func: func(context.Context) error { return nil }}
	require.NoError(t, s.RegisterTask(cfg))

	err := s.RegisterTask(cfg)
	assert.ErrorIs(t, err, ErrTaskAlreadyDefined)

	err = s.RegisterTask(TaskConfig{ID: "bad", Cron: "not a cron", Func: cfg.Func})
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:   "count",
		Cron: "0 0 * * *",
		Func: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.RunNow("count"))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		info, err := s.GetTask("count")
		return err == nil && info.LastRun != nil && !info.Running
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
}

func TestScheduler_RecordsFailure(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:   "fail",
		Cron: "0 0 * * *",
		Func: func(context.Context) error { return errors.New("boom") },
	}))

	require.NoError(t, s.RunNow("fail"))
	require.Eventually(t, func() bool {
		info, err := s.GetTask("fail")
		return err == nil && info.LastError == "boom"
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunOnStart(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "startup",
		Cron:       "0 0 * * *",
		RunOnStart: true,
		Func: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_ListTasksSorted(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "b", Cron: "0 0 * * *", Func: noop}))
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Cron: "0 0 * * *", Func: noop}))

	tasks := s.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestHandlers(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Cron: "0 0 * * *", Func: func(context.Context) error { return nil }}))

	e := echo.New()
	NewHandlers(s).RegisterRoutes(e.Group("/api/v1/scheduler"))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/scheduler/tasks", http.StatusOK},
		{http.MethodGet, "/api/v1/scheduler/tasks/a", http.StatusOK},
		{http.MethodGet, "/api/v1/scheduler/tasks/missing", http.StatusNotFound},
		{http.MethodPost, "/api/v1/scheduler/tasks/a/run", http.StatusAccepted},
		{http.MethodPost, "/api/v1/scheduler/tasks/missing/run", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}
