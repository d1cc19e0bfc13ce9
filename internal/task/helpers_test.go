package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestDescriptor(taskType string, priority Priority) Descriptor {
	return newDescriptor(uuid.NewString(), taskType, map[string]any{"k": "v"}, "owner-1", priority, time.Now())
}

// succeedWith returns an executor that immediately returns data
func succeedWith(data any) Executor {
	return ExecutorFunc(func(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error) {
		return data, nil
	})
}

// failWith returns an executor that immediately returns err
func failWith(err error) Executor {
	return ExecutorFunc(func(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error) {
		return nil, err
	})
}

// blockUntilCancelled returns an executor that signals started and then
// waits for its context to be cancelled
func blockUntilCancelled(started chan<- string) Executor {
	return ExecutorFunc(func(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error) {
		if started != nil {
			started <- paramString(params["name"])
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func paramString(v any) string {
	s, _ := v.(string)
	return s
}

func testRetention() RetentionConfig {
	return RetentionConfig{TTL: time.Hour, Capacity: 1000}
}

func newTestGateway(t *testing.T, maxConcurrent int, registry *Registry) *Gateway {
	t.Helper()
	config := DefaultGatewayConfig()
	config.Queue.MaxConcurrentJobs = maxConcurrent
	g := NewGateway(config, registry, setupTestLogger())
	t.Cleanup(g.Stop)
	return g
}

func waitForStatus(t *testing.T, get func(id string) (ProgressRecord, error), id string, want Status) ProgressRecord {
	t.Helper()
	var rec ProgressRecord
	require.Eventually(t, func() bool {
		r, err := get(id)
		if err != nil {
			return false
		}
		rec = r
		return r.Status == want
	}, 2*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
	return rec
}
