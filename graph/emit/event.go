// Package emit provides observability event types and emitters for workflow execution.
package emit

// Event represents an observability event emitted during workflow execution.
//
// Events provide insight into workflow behavior:
//   - Node execution completion
//   - Checkpoint resume points
//   - Fatal node errors
//   - Degraded persistence warnings
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Buffer in memory for inspection
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// Step is the sequential step number in the workflow (1-indexed).
	// Zero for workflow-level events.
	Step int

	// NodeID identifies which node emitted this event.
	// Empty string for workflow-level events.
	NodeID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "error": Error details
	//   - "sources": Number of sources gathered by a search step
	//   - "iteration": Research loop iteration
	Meta map[string]interface{}
}
