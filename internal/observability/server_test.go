// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, checker ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")

	server.Metrics().RequestsTotal.WithLabelValues("/api/action", "200").Inc()
	server.Metrics().ConnectionsTotal.WithLabelValues("websocket").Inc()
	server.Metrics().ConnectionsOpen.WithLabelValues("websocket").Set(2)

	_, body = get(t, "http://"+server.Addr()+"/metrics")
	assert.Contains(t, body, `gridquest_http_requests_total{route="/api/action",status="200"} 1`)
	assert.Contains(t, body, `gridquest_connections_total{type="websocket"} 1`)
	assert.Contains(t, body, `gridquest_connections_open{type="websocket"} 2`)
}

func TestServer_RegistryExposesOtherCollectors(t *testing.T) {
	server := startServer(t, nil)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gridquest_test_total", Help: "test"})
	server.Registry().MustRegister(counter)
	counter.Add(3)

	_, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Contains(t, body, "gridquest_test_total 3")
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status, "liveness ignores readiness")
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name    string
		checker ReadinessChecker
		status  int
		body    string
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok\n"},
		{"not ready", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, "not ready\n"},
		{"nil checker", nil, http.StatusOK, "ok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("127.0.0.1:0", tt.checker)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestServer_ReadinessCheckHasDeadline(t *testing.T) {
	var deadline time.Time
	server := NewServer("127.0.0.1:0", func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))
	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(ReadinessTimeout), deadline, time.Second)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	require.NoError(t, server.Stop(context.Background()), "stop before start")

	_, err := server.Start()
	require.NoError(t, err)
	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()))
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	// Closing the listener out from under Serve must surface on the channel.
	require.NoError(t, server.listener.Close())

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("serve error was not reported")
	}
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error channel did not close")
	}
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := startServer(t, nil)
	second := NewServer(first.Addr(), nil)
	_, err := second.Start()
	require.Error(t, err)

	// A failed start leaves the server startable.
	assert.False(t, second.running.Load())
}
