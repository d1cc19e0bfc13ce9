package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/marketing-jobs/internal/api"
	"github.com/phrazzld/marketing-jobs/internal/api/middleware"
	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/events"
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/platform/logger"
	"github.com/phrazzld/marketing-jobs/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct{}

func (stubGenerator) GenerateText(context.Context, string) (string, error) {
	return "Fresh copy for spring", nil
}

func (stubGenerator) EmbedText(context.Context, string) ([]float32, error) {
	return []float32{0.5, 0.25}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, LogLevel: "debug"},
		Queue:  config.QueueConfig{MaxConcurrentJobs: 2},
		Retention: config.RetentionConfig{
			ResultTTL:        time.Minute,
			ResultCapacity:   100,
			ProgressTTL:      time.Minute,
			ProgressCapacity: 100,
		},
	}
}

func newTestApp(t *testing.T) *application {
	t.Helper()
	app, err := newApplication(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), stubGenerator{})
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func submit(t *testing.T, h http.Handler, owner string, body map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(raw))
	req.Header.Set(middleware.OwnerIDHeader, owner)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp api.SubmitTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.TaskID
}

func TestApplicationRunsTasksEndToEnd(t *testing.T) {
	app := newTestApp(t)
	h := app.setupRouter()

	ids := map[string]string{
		task.TypeAnalytics: submit(t, h, "owner-1", map[string]any{
			"type":       task.TypeAnalytics,
			"parameters": map[string]any{"impressions": 100, "clicks": 10},
		}),
		task.TypeContentGeneration: submit(t, h, "owner-1", map[string]any{
			"type":       task.TypeContentGeneration,
			"priority":   "urgent",
			"parameters": map[string]any{"topic": "spring launch"},
		}),
		task.TypeKnowledgeIndexing: submit(t, h, "owner-1", map[string]any{
			"type":       task.TypeKnowledgeIndexing,
			"parameters": map[string]any{"documents": []string{"brand voice guide"}},
		}),
	}

	for taskType, id := range ids {
		require.Eventually(t, func() bool {
			rec, err := app.tasks.GetProgress(id)
			return err == nil && rec.Status == task.StatusSucceeded
		}, 2*time.Second, 5*time.Millisecond, "%s task did not succeed", taskType)
	}

	require.Eventually(t, func() bool {
		return app.outcomes.Snapshot()["succeeded"] == 3
	}, time.Second, 5*time.Millisecond, "completion events should be counted")

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+ids[task.TypeContentGeneration]+"/result", nil)
	req.Header.Set(middleware.OwnerIDHeader, "owner-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fresh copy for spring")
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotNil(t, body["queue"])
}

func TestTaskRoutesRequireOwner(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplicationWithoutGenerator(t *testing.T) {
	app, err := newApplication(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)

	id, err := app.tasks.Submit(context.Background(), task.SubmitRequest{
		Type:     task.TypeContentGeneration,
		OwnerID:  "owner-1",
		Priority: task.PriorityNormal,
	})
	require.NoError(t, err, "unknown types are accepted and fail at dispatch")

	require.Eventually(t, func() bool {
		rec, err := app.tasks.GetProgress(id)
		return err == nil && rec.Status == task.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGatewayConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.MaxBacklog = 50
	cfg.Queue.StrictTaskTypes = true

	got := gatewayConfig(cfg)

	assert.Equal(t, 2, got.Queue.MaxConcurrentJobs)
	assert.Equal(t, 50, got.Queue.MaxBacklog)
	assert.True(t, got.StrictTaskTypes)
	assert.Equal(t, time.Minute, got.Results.TTL)
	assert.Equal(t, 100, got.Progress.Capacity)
}

func TestCompletionPublisher(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := events.NewInMemoryEventEmitter(log)

	var got *events.TaskCompletedEvent
	emitter.RegisterHandler(events.EventHandlerFunc(func(_ context.Context, e *events.TaskCompletedEvent) error {
		got = e
		return nil
	}))

	publish := completionPublisher(emitter, log)
	publish(
		task.Descriptor{ID: "t-1", Type: task.TypeAnalytics, OwnerID: "owner-1"},
		task.ResultRecord{Status: task.StatusFailed, Message: "failed", Error: "boom"},
	)

	require.NotNil(t, got)
	assert.Equal(t, "t-1", got.TaskID)
	assert.Equal(t, task.TypeAnalytics, got.TaskType)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestFailureReporter(t *testing.T) {
	log, buf := logger.NewTestLogger()
	report := failureReporter(log)

	desc := task.Descriptor{ID: "t-9", Type: task.TypeContentGeneration, OwnerID: "owner-1"}
	err := fmt.Errorf("%w: %w", generation.ErrGenerationFailed,
		fmt.Errorf("%w: upstream said api_key=AIzaSyA-secret-value", generation.ErrTransientFailure))
	report(desc, err)

	entry, ok := buf.FindEntry("task failed")
	require.True(t, ok)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "t-9", entry["task_id"])
	assert.Equal(t, "owner-1", entry["owner_id"])
	assert.Equal(t, "upstream_unavailable", entry["category"])
	assert.NotContains(t, entry["error"], "AIzaSyA-secret-value")
	assert.Contains(t, entry["error"], "[REDACTED_CREDENTIAL]")
}

func TestFailureCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %q", task.ErrUnknownTaskType, "x"), "unknown_task_type"},
		{fmt.Errorf("%w: safety", generation.ErrContentBlocked), "content_blocked"},
		{fmt.Errorf("%w: empty", generation.ErrInvalidResponse), "invalid_response"},
		{generation.ErrGenerationFailed, "generation_failed"},
		{errors.New("boom"), "execution_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureCategory(tt.err), tt.err.Error())
	}
}

func TestFailedTaskIsReported(t *testing.T) {
	log, buf := logger.NewTestLogger()
	cfg := testConfig()
	app, err := newApplication(cfg, log, nil)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)

	id, err := app.tasks.Submit(context.Background(), task.SubmitRequest{
		Type:    task.TypeContentGeneration,
		OwnerID: "owner-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entry, ok := buf.FindEntry("task failed")
		return ok && entry["task_id"] == id && entry["category"] == "unknown_task_type"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartHTTPServerStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.startHTTPServer(ctx, app.setupRouter())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err := app.tasks.Submit(context.Background(), task.SubmitRequest{Type: task.TypeAnalytics, OwnerID: "o"})
	assert.ErrorIs(t, err, task.ErrQueueClosed, "gateway should be stopped after shutdown")
}

func TestStatsReporting(t *testing.T) {
	log, buf := logger.NewTestLogger()

	t.Run("reporter logs snapshot", func(t *testing.T) {
		app := newTestApp(t)
		app.outcomes.HandleEvent(context.Background(), events.NewTaskCompletedEvent("t", "x", "o", "failed", "", ""))

		statsReporter(app.tasks, app.outcomes, log)()

		entry, ok := buf.FindEntry("queue stats")
		require.True(t, ok)
		assert.EqualValues(t, 2, entry["max_concurrent"])
		assert.EqualValues(t, 1, entry["failed"])
	})

	t.Run("empty schedule disables", func(t *testing.T) {
		c, err := startStatsSchedule("", func() {}, log)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := startStatsSchedule("every now and then", func() {}, log)
		assert.Error(t, err)
	})

	t.Run("runs on schedule", func(t *testing.T) {
		fired := make(chan struct{}, 1)
		c, err := startStatsSchedule("@every 1s", func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}, log)
		require.NoError(t, err)
		defer c.Stop()

		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatal("stats report never ran")
		}
	})
}
