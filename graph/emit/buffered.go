package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// This emitter captures all events and provides query capabilities for
// execution history analysis. Events are organized by runID for efficient
// retrieval.
//
// Use cases:
//   - Development and debugging
//   - Testing and validation
//   - Post-execution analysis
//
// Warning: this emitter stores all events in memory. For long-running
// deployments use a persistent backend or clear finished runs.
//
// Example usage:
//
//	emitter := emit.NewBufferedEmitter()
//	engine := graph.New(reduce, store, emitter, opts)
//	engine.Run(ctx, "run-001", initial)
//	history := emitter.GetHistory("run-001")
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// NewBufferedEmitter creates a new BufferedEmitter.
//
// Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// GetHistory retrieves all events for a specific runID in emission order.
//
// Returns an empty slice if no events exist for the given runID. The
// returned slice is a copy; callers may modify it freely.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	if events == nil {
		return []Event{}
	}

	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// Clear removes stored events.
//
// If runID is non-empty, clears only events for that specific run.
// If runID is empty, clears all stored events across all runs.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, runID)
	}
}
