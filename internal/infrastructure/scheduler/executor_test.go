package scheduler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPExecutor_Execute(t *testing.T) {
	var (
		refreshCalls atomic.Int32
		healthCalls  atomic.Int32
		lastBody     atomic.Value
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/analytics/refresh":
			refreshCalls.Add(1)
			body, _ := io.ReadAll(r.Body)
			lastBody.Store(string(body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/analytics/health":
			healthCalls.Add(1)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	exec := NewHTTPExecutor(server.URL+"/", nil, time.Second, zap.NewNop())
	jobs := DefaultSchedulerConfig().Jobs

	t.Run("daily refresh posts daily scope", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), jobs[0])
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, res.StatusCode)
		assert.Equal(t, `{"scope":"daily"}`, lastBody.Load())
	})

	t.Run("periodic refresh posts incremental scope", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), jobs[1])
		require.NoError(t, err)
		assert.Equal(t, `{"scope":"incremental"}`, lastBody.Load())
	})

	t.Run("health check uses GET", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), jobs[2])
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	assert.Equal(t, int32(2), refreshCalls.Load())
	assert.Equal(t, int32(1), healthCalls.Load())
	assert.Equal(t, server.URL+"/api/analytics/health", exec.URL(jobs[2]))
}

func TestHTTPExecutor_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("analytics warming up"))
	}))
	defer server.Close()

	exec := NewHTTPExecutor(server.URL, server.Client(), 0, nil)
	res, err := exec.Execute(context.Background(), DefaultSchedulerConfig().Jobs[2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "analytics warming up")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestHTTPExecutor_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	exec := NewHTTPExecutor(url, nil, time.Second, nil)
	res, err := exec.Execute(context.Background(), DefaultSchedulerConfig().Jobs[0])
	require.Error(t, err)
	assert.Zero(t, res.StatusCode)
}

func TestScheduler_CallsEndpointOncePerTick(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/analytics/refresh" {
			calls.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	loc := moscow(t)
	start := time.Date(2024, 1, 15, 3, 59, 0, 0, loc)
	s, err := NewScheduler(DefaultSchedulerConfig(), NewHTTPExecutor(server.URL, nil, time.Second, nil), nil,
		WithClock(func() time.Time { return start }))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		s.Tick(context.Background(), time.Date(2024, 1, 15, 4, 0, i*15, 0, loc))
	}
	assert.Equal(t, int32(1), calls.Load())
}
