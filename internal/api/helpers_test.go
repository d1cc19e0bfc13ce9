package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/marketing-jobs/internal/api/middleware"
	"github.com/phrazzld/marketing-jobs/internal/task"
	"github.com/stretchr/testify/require"
)

const (
	echoType  = "echo"
	blockType = "block"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer returns a router backed by a running Gateway with an echo
// executor and a blocking executor registered.
func newTestServer(t *testing.T, config task.GatewayConfig) (http.Handler, *task.Gateway) {
	t.Helper()

	registry := task.NewRegistry()
	require.NoError(t, registry.Register(echoType, task.ExecutorFunc(
		func(_ context.Context, params map[string]any, _ task.ProgressReporter) (any, error) {
			return params, nil
		})))
	require.NoError(t, registry.Register(blockType, task.ExecutorFunc(
		func(ctx context.Context, _ map[string]any, _ task.ProgressReporter) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})))

	gateway := task.NewGateway(config, registry, discardLogger())
	gateway.Start()
	t.Cleanup(gateway.Stop)

	handler := NewTaskHandler(gateway, discardLogger())
	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(discardLogger()))
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(middleware.RequireOwner)
		handler.Routes(r)
	})
	return r, gateway
}

func doRequest(t *testing.T, h http.Handler, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(middleware.OwnerIDHeader, owner)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func waitForTaskStatus(t *testing.T, g *task.Gateway, id string, want task.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, err := g.GetProgress(id)
		return err == nil && rec.Status == want
	}, 2*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
}
