package graph

import "context"

// Node represents a processing unit in the workflow graph.
// It receives state of type S, performs computation, and returns a NodeResult.
//
// Each node can:
//   - Access the current state
//   - Perform computation (call LLMs, search providers, or custom logic)
//   - Return state modifications via Delta
//   - Control routing via Route
//
// A node must absorb collaborator failures (network errors, timeouts, parse
// failures) into its Delta where the workflow defines a degraded path. A
// non-nil Err means the node's own logic failed and the run must abort.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	// It returns a NodeResult containing state changes, the routing decision,
	// and any fatal error encountered.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult represents the output of a node execution.
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node.
	// It will be merged with the current state using the configured reducer.
	Delta S

	// Route specifies the next step in workflow execution.
	// Use Stop() for terminal nodes or Goto(id) for explicit routing.
	// A zero Route defers to edge-based routing.
	Route Next

	// Err contains a fatal error from node execution. Non-nil errors abort
	// the workflow; they are never retried by the engine.
	Err error
}

// Next specifies the next step in workflow execution after a node completes.
//
// It supports two routing modes:
//   - Terminal: Stop execution (Terminal = true)
//   - Single: Go to a specific node (To = "nodeID")
type Next struct {
	// To specifies the next node to execute. Mutually exclusive with Terminal.
	To string

	// Terminal indicates workflow execution should stop.
	Terminal bool
}

// Stop returns a Next that terminates workflow execution.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the specified node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	plan := NodeFunc[State](func(ctx context.Context, s State) NodeResult[State] {
//	    return NodeResult[State]{
//	        Delta: State{FinalAnswer: "done"},
//	        Route: Stop(),
//	    }
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// NodeError represents a fatal error that occurred during node execution.
// It provides structured error information for observability and debugging.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
