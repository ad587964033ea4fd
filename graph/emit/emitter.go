package emit

// Emitter receives and processes observability events from workflow execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog
//   - Distributed tracing: OpenTelemetry
//   - In-memory capture for tests and dashboards
//
// Implementations should be:
//   - Non-blocking: Avoid slowing down workflow execution
//   - Thread-safe: May be called concurrently from multiple runs
//   - Resilient: Handle failures gracefully (don't crash the workflow)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit should not panic and should not block workflow execution.
	// Errors must be handled internally.
	Emit(event Event)
}
