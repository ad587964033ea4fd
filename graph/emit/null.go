package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use cases:
//   - Deployments where event logging is unwanted
//   - Tests that don't assert on events
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
//
// Safe for concurrent use, zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event without any processing.
func (n *NullEmitter) Emit(event Event) {
	// No-op: discard the event
}
