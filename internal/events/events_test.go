package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskCompletedEvent(t *testing.T) {
	event := NewTaskCompletedEvent("task-1", "analytics", "owner-1", "failed", "task failed", "boom")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "task-1", event.TaskID)
	assert.Equal(t, "analytics", event.TaskType)
	assert.Equal(t, "owner-1", event.OwnerID)
	assert.Equal(t, "failed", event.Status)
	assert.Equal(t, "boom", event.Error)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	other := NewTaskCompletedEvent("task-1", "analytics", "owner-1", "failed", "", "")
	assert.NotEqual(t, event.ID, other.ID, "each event gets its own ID")
}

func TestTaskCompletedEventJSON(t *testing.T) {
	event := NewTaskCompletedEvent("task-1", "analytics", "owner-1", "succeeded", "done", "")

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "task-1", decoded["task_id"])
	assert.Equal(t, "succeeded", decoded["status"])
	_, hasError := decoded["error"]
	assert.False(t, hasError, "empty error should be omitted")
}

func TestEventHandlerFunc(t *testing.T) {
	var got *TaskCompletedEvent
	h := EventHandlerFunc(func(_ context.Context, event *TaskCompletedEvent) error {
		got = event
		return nil
	})

	event := NewTaskCompletedEvent("t", "x", "o", "cancelled", "", "")
	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)
}
