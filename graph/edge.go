// Package graph provides the core workflow execution engine for deepresearch.
package graph

// Edge represents a connection between two nodes in the workflow graph.
//
// Edges define the control flow between nodes. They can be:
// - Unconditional: Always traverse (When = nil).
// - Conditional: Only traverse if predicate returns true (When != nil).
//
// Edges are evaluated only when a node does not return an explicit route in
// its NodeResult; explicit routing always takes precedence.
//
// Type parameter S is the state type used for predicate evaluation.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional predicate that determines if this edge should be traversed.
	// If nil, the edge is unconditional (always traverse).
	When Predicate[S]
}

// Predicate is a function that evaluates state to determine if an edge should
// be traversed.
//
// Predicates enable conditional routing based on workflow state. They must be
// pure functions (deterministic, no side effects): the engine may evaluate
// them any number of times for the same state.
//
// Type parameter S is the state type to evaluate.
type Predicate[S any] func(state S) bool

// Reducer merges a partial state update (delta) produced by a node into the
// previous state, returning the next state.
//
// Reducers must be deterministic and must not mutate their inputs through
// shared references the caller still holds. Each field of the state decides
// its own merge rule inside the reducer: append-only sequences concatenate,
// scalars replace-when-present, creation-time fields ignore the delta.
//
// Type parameter S is the state type shared across the workflow.
type Reducer[S any] func(prev, delta S) S
