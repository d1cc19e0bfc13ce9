package task

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ProgressRecord is a snapshot of a task's lifecycle state
type ProgressRecord struct {
	TaskID    string    `json:"task_id"`
	TaskType  string    `json:"task_type"`
	OwnerID   string    `json:"owner_id"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetentionConfig bounds how long and how many finished records are kept.
// A zero Capacity means no count bound; a zero TTL means no age bound.
type RetentionConfig struct {
	TTL      time.Duration
	Capacity int
}

// ProgressTracker is the single source of truth for what a task is doing now.
//
// Queued and running records live in an unbounded active map and are never
// evicted. Once a record reaches a terminal state it moves to an expirable LRU
// and is evicted by age (TTL) or by count (Capacity), whichever comes first.
type ProgressTracker struct {
	mu       sync.RWMutex
	active   map[string]*ProgressRecord
	finished *expirable.LRU[string, ProgressRecord]
	now      func() time.Time
}

// NewProgressTracker creates a tracker with the given retention for finished records
func NewProgressTracker(retention RetentionConfig) *ProgressTracker {
	return &ProgressTracker{
		active:   make(map[string]*ProgressRecord),
		finished: expirable.NewLRU[string, ProgressRecord](retention.Capacity, nil, retention.TTL),
		now:      time.Now,
	}
}

// Create inserts a QUEUED record for the descriptor.
// The record is visible to Get as soon as Create returns.
func (t *ProgressTracker) Create(desc Descriptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[desc.ID]; exists || t.finished.Contains(desc.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, desc.ID)
	}

	now := t.now()
	t.active[desc.ID] = &ProgressRecord{
		TaskID:    desc.ID,
		TaskType:  desc.Type,
		OwnerID:   desc.OwnerID,
		Status:    StatusQueued,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Remove drops a record that never made it into the queue
func (t *ProgressTracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, id)
	t.finished.Remove(id)
}

// UpdateStatus moves a task along the state machine.
// Reaching SUCCEEDED pins percent at 100; other terminal states freeze it.
func (t *ProgressTracker) UpdateStatus(id string, status Status, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.active[id]
	if !ok {
		if old, found := t.finished.Peek(id); found {
			return fmt.Errorf("%w: %s is %s", ErrTerminalState, id, old.Status)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !canTransition(rec.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
	}

	rec.Status = status
	if message != "" {
		rec.Message = message
	}
	if status == StatusSucceeded {
		rec.Percent = 100
	}
	rec.UpdatedAt = t.now()

	if status.IsTerminal() {
		t.finished.Add(id, *rec)
		delete(t.active, id)
	}
	return nil
}

// UpdateProgress records advisory progress for a non-terminal task.
// Percent is clamped to 0..100 and never decreases.
func (t *ProgressTracker) UpdateProgress(id string, percent int, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.active[id]
	if !ok {
		if t.finished.Contains(id) {
			return fmt.Errorf("%w: %s", ErrTerminalState, id)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	percent = min(max(percent, 0), 100)
	if percent > rec.Percent {
		rec.Percent = percent
	}
	if message != "" {
		rec.Message = message
	}
	rec.UpdatedAt = t.now()
	return nil
}

// Get returns the current snapshot or ErrNotFound
func (t *ProgressTracker) Get(id string) (ProgressRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rec, ok := t.active[id]; ok {
		return *rec, nil
	}
	if rec, ok := t.finished.Peek(id); ok {
		return rec, nil
	}
	return ProgressRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ListByOwner returns live and retained records belonging to ownerID,
// oldest first
func (t *ProgressTracker) ListByOwner(ownerID string) []ProgressRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []ProgressRecord
	for _, rec := range t.active {
		if rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	for _, rec := range t.finished.Values() {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b ProgressRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
