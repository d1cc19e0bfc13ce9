package task

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps task type names to their executors.
// It is populated at startup and read by workers at dispatch time.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register binds an executor to a task type.
// Registering the same type twice is an error.
func (r *Registry) Register(taskType string, executor Executor) error {
	if taskType == "" {
		return fmt.Errorf("%w: empty task type", ErrUnknownTaskType)
	}
	if executor == nil {
		return fmt.Errorf("%w: task type %q", ErrNilExecutor, taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[taskType]; exists {
		return fmt.Errorf("executor for task type %q already registered", taskType)
	}
	r.executors[taskType] = executor
	return nil
}

// Lookup returns the executor registered for taskType
func (r *Registry) Lookup(taskType string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[taskType]
	return executor, ok
}

// Types returns the registered task types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
