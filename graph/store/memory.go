package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// It stores workflow state and checkpoints in memory using maps.
// Designed for:
//   - Testing and development
//   - Degraded-mode fallback when a database backend is unreachable
//   - Short-lived workflows where persistence isn't required
//
// MemStore is thread-safe and supports concurrent access.
//
// Limitations:
//   - Data is lost when process terminates
//   - Not suitable for distributed systems
//   - Memory usage grows with workflow history
//
// For production use with persistence, use SQLiteStore, PostgresStore,
// or RedisStore.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu          sync.RWMutex
	steps       map[string][]StepRecord[S] // runID -> list of steps
	checkpoints map[string]Checkpoint[S]   // checkpointID -> checkpoint
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	store := NewMemStore[MyState]()
//	engine := graph.New(reducer, store, emitter, opts)
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		steps:       make(map[string][]StepRecord[S]),
		checkpoints: make(map[string]Checkpoint[S]),
	}
}

// SaveStep persists a workflow execution step.
//
// Re-saving an existing (runID, step) pair replaces the stored record,
// matching the upsert behavior of the database backends: the last
// writer for a key wins.
//
// The state is deep-copied via JSON so later mutations by the caller
// cannot corrupt stored history. Thread-safe for concurrent writes.
func (m *MemStore[S]) SaveStep(_ context.Context, runID string, step int, nodeID string, state S) error {
	copied, err := deepCopy(state)
	if err != nil {
		return fmt.Errorf("failed to copy state: %w", err)
	}

	record := StepRecord[S]{
		Step:   step,
		NodeID: nodeID,
		State:  copied,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.steps[runID] {
		if existing.Step == step {
			m.steps[runID][i] = record
			return nil
		}
	}
	m.steps[runID] = append(m.steps[runID], record)
	return nil
}

// LoadLatest retrieves the most recent step for a run.
//
// Returns the record with the highest step number. This handles
// out-of-order step saves correctly.
func (m *MemStore[S]) LoadLatest(_ context.Context, runID string) (state S, step int, nodeID string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, exists := m.steps[runID]
	if !exists || len(records) == 0 {
		var zero S
		return zero, 0, "", ErrNotFound
	}

	latest := records[0]
	for _, record := range records[1:] {
		if record.Step > latest.Step {
			latest = record
		}
	}

	return latest.State, latest.Step, latest.NodeID, nil
}

// SaveCheckpoint creates a named checkpoint.
//
// If a checkpoint with the same ID exists, it is overwritten.
func (m *MemStore[S]) SaveCheckpoint(_ context.Context, cpID string, state S, step int) error {
	copied, err := deepCopy(state)
	if err != nil {
		return fmt.Errorf("failed to copy state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints[cpID] = Checkpoint[S]{
		ID:    cpID,
		State: copied,
		Step:  step,
	}
	return nil
}

// LoadCheckpoint retrieves a named checkpoint.
//
// Returns ErrNotFound if the checkpoint ID doesn't exist.
func (m *MemStore[S]) LoadCheckpoint(_ context.Context, cpID string) (state S, step int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[cpID]
	if !exists {
		var zero S
		return zero, 0, ErrNotFound
	}

	return cp.State, cp.Step, nil
}

// deepCopy round-trips a value through JSON to detach it from the caller.
func deepCopy[S any](state S) (S, error) {
	var copied S
	data, err := json.Marshal(state)
	if err != nil {
		return copied, err
	}
	if err := json.Unmarshal(data, &copied); err != nil {
		return copied, err
	}
	return copied, nil
}
