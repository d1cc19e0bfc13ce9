package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultRecord is the terminal outcome of a task. It is written exactly once.
type ResultRecord struct {
	TaskID      string    `json:"task_id"`
	TaskType    string    `json:"task_type"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Data        any       `json:"data,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ResultStore holds completed outcomes in memory.
//
// Eviction: records expire RetentionConfig.TTL after they are written, and
// when Capacity is reached the least recently written or read record is
// dropped. The store is independent of ProgressTracker, so a missing result
// does not tell a caller whether the task is still running or was evicted.
type ResultStore struct {
	mu      sync.Mutex
	results *expirable.LRU[string, ResultRecord]
}

// NewResultStore creates a result store with the given retention policy
func NewResultStore(retention RetentionConfig) *ResultStore {
	return &ResultStore{
		results: expirable.NewLRU[string, ResultRecord](retention.Capacity, nil, retention.TTL),
	}
}

// Put records the outcome for id. A second Put for the same id fails.
func (s *ResultStore) Put(id string, result ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results.Contains(id) {
		return fmt.Errorf("%w: %s", ErrResultExists, id)
	}
	result.TaskID = id
	s.results.Add(id, result)
	return nil
}

// Get returns the outcome for id or ErrNotFound
func (s *ResultStore) Get(id string) (ResultRecord, error) {
	result, ok := s.results.Get(id)
	if !ok {
		return ResultRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return result, nil
}

// Len returns the number of retained results
func (s *ResultStore) Len() int {
	return s.results.Len()
}
