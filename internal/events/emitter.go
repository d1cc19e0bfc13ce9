package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrHandlerFailed marks errors returned by EmitEvent when one or more
// handlers rejected or panicked on a completion event.
var ErrHandlerFailed = errors.New("event handler failed")

// subscription pairs a handler with the terminal statuses it receives.
// An empty status list receives every event.
type subscription struct {
	handler  EventHandler
	statuses []string
}

func (s subscription) wants(status string) bool {
	return len(s.statuses) == 0 || slices.Contains(s.statuses, status)
}

// InMemoryEventEmitter delivers completion events synchronously to registered
// handlers. Emission runs on the worker that settled the task, so a handler
// that fails or panics is isolated from the other handlers and the worker.
type InMemoryEventEmitter struct {
	subs   []subscription
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "completion_emitter"),
	}
}

// RegisterHandler subscribes handler to completion events. When statuses are
// given, only events whose Status is one of them are delivered.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, statuses ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{handler: handler, statuses: slices.Clone(statuses)})
	e.logger.Debug("registered completion handler",
		"handler_count", len(e.subs),
		"statuses", statuses)
}

// EmitEvent delivers event to every subscribed handler. All handlers are
// attempted; failures are joined and wrapped with ErrHandlerFailed.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskCompletedEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var errs []error
	delivered := 0
	for i, sub := range subs {
		if !sub.wants(event.Status) {
			continue
		}
		delivered++
		if err := deliver(ctx, sub.handler, event); err != nil {
			e.logger.Error("completion handler failed",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"task_id", event.TaskID,
				"status", event.Status)
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}

	e.logger.Debug("emitted completion event",
		"event_id", event.ID,
		"task_id", event.TaskID,
		"status", event.Status,
		"delivered", delivered,
		"failed", len(errs))

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrHandlerFailed, errors.Join(errs...))
}

// deliver calls handler, converting a panic into an error
func deliver(ctx context.Context, handler EventHandler, event *TaskCompletedEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
