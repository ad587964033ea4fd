package graph

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/deepresearch/graph/emit"
	"github.com/dshills/deepresearch/graph/store"
)

// Engine orchestrates stateful workflow execution with checkpointing support.
//
// The Engine is the core runtime that:
//   - Manages workflow graph topology (nodes and edges)
//   - Executes nodes as a single sequential chain
//   - Merges partial state updates via the reducer
//   - Persists a checkpoint at every node boundary via the store
//   - Emits observability events via the emitter
//   - Enforces execution limits (MaxSteps, per-node timeout)
//   - Supports resuming from the last persisted node boundary
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	engine := New(reduce, store.NewMemStore[State](), emit.NewLogEmitter(os.Stdout, false), Options{MaxSteps: 50})
//	engine.Add("plan", planNode)
//	engine.StartAt("plan")
//	final, err := engine.Run(ctx, "thread-1::user-1", initial)
type Engine[S any] struct {
	mu sync.RWMutex

	// reducer merges partial state updates deterministically
	reducer Reducer[S]

	// nodes maps node IDs to Node implementations
	nodes map[string]Node[S]

	// edges defines conditional transitions between nodes
	edges []Edge[S]

	// startNode is the entry point for workflow execution
	startNode string

	// store persists workflow state snapshots at node boundaries
	store store.Store[S]

	// emitter receives observability events
	emitter emit.Emitter

	// metrics records step latency and run counts, optional
	metrics *Metrics

	// onStep is an optional hook invoked after each committed step
	onStep func(StepEvent[S])

	// opts contains execution configuration
	opts Options
}

// Options configures Engine execution behavior.
//
// Zero values are valid - the Engine will use sensible defaults.
type Options struct {
	// MaxSteps limits workflow execution to prevent infinite loops.
	// If 0, no limit is enforced (use with caution).
	MaxSteps int

	// NodeTimeout bounds each node execution. The node receives a context
	// with this deadline; a node that returns after the deadline with no
	// error of its own fails with code NODE_TIMEOUT.
	// If 0, node execution is unbounded.
	NodeTimeout time.Duration
}

// StepEvent describes one committed workflow step: the node that ran, the
// partial update it produced, and the state after the reducer applied it.
// The checkpoint for this step has already been persisted when the hook fires.
type StepEvent[S any] struct {
	RunID  string
	Step   int
	NodeID string
	Delta  S
	State  S
}

// New creates a new Engine with the given configuration.
//
// Parameters:
//   - reducer: Function to merge partial state updates (required for Run)
//   - st: Persistence backend for state checkpoints (required for Run)
//   - emitter: Observability event receiver (optional, can be nil)
//   - opts: Execution configuration (MaxSteps, NodeTimeout)
//
// The constructor does not validate all parameters to allow flexible
// initialization. Validation occurs when Run is called.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts Options) *Engine[S] {
	return &Engine[S]{
		reducer: reducer,
		nodes:   make(map[string]Node[S]),
		edges:   make([]Edge[S], 0),
		store:   st,
		emitter: emitter,
		opts:    opts,
	}
}

// Add registers a node in the workflow graph.
//
// Node IDs must be unique within the workflow.
//
// Returns error if:
//   - nodeID is empty
//   - node is nil
//   - a node with this ID already exists
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{
			Message: "duplicate node ID: " + nodeID,
			Code:    "DUPLICATE_NODE",
		}
	}

	e.nodes[nodeID] = node
	return nil
}

// StartAt sets the entry point for workflow execution.
//
// The node must have been registered via Add before calling StartAt.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{
			Message: "start node does not exist: " + nodeID,
			Code:    "NODE_NOT_FOUND",
		}
	}

	e.startNode = nodeID
	return nil
}

// Connect creates an edge between two nodes.
//
// Edges are the fallback when a node returns no explicit route: the first
// edge from the current node whose predicate is nil or returns true for the
// merged state wins.
//
// Note: Node existence is not validated (lazy validation) to allow flexible
// graph construction order.
func (e *Engine[S]) Connect(from, to string, predicate Predicate[S]) error {
	if from == "" {
		return &EngineError{Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &EngineError{Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: predicate})
	return nil
}

// OnStep registers a hook invoked after every committed step, in execution
// order, from the run's own goroutine. The hook must not block for long; the
// engine does not schedule the next node until it returns.
func (e *Engine[S]) OnStep(fn func(StepEvent[S])) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStep = fn
}

// SetMetrics attaches Prometheus metrics collection to the engine.
func (e *Engine[S]) SetMetrics(m *Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Run executes the workflow from the configured start node to completion.
//
// At each node boundary the engine merges the node's delta via the reducer,
// persists a checkpoint, emits an event, invokes the step hook, and then
// routes. Context cancellation is honored between nodes; a canceled run never
// persists a checkpoint for a node that did not complete.
//
// Parameters:
//   - ctx: Context for cancellation and request-scoped values
//   - runID: Unique identifier for this workflow execution
//   - initial: Starting state value
//
// Returns the final state, or an error if validation fails, a node fails
// fatally, or limits are exceeded.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var zero S
	if err := e.validate(); err != nil {
		return zero, err
	}
	e.mu.RLock()
	start := e.startNode
	e.mu.RUnlock()
	return e.run(ctx, runID, initial, start, 0)
}

// Resume continues a workflow from a previously persisted node boundary.
//
// The caller supplies the checkpointed state, the node to execute next, and
// the step number of the last persisted boundary. Steps saved by the resumed
// execution continue the original numbering so the run's history stays
// monotonic.
func (e *Engine[S]) Resume(ctx context.Context, runID string, state S, nextNode string, lastStep int) (S, error) {
	var zero S
	if err := e.validate(); err != nil {
		return zero, err
	}
	if nextNode == "" {
		return zero, &EngineError{
			Message: "resume node not specified",
			Code:    "NO_START_NODE",
		}
	}

	e.mu.RLock()
	_, exists := e.nodes[nextNode]
	e.mu.RUnlock()
	if !exists {
		return zero, &EngineError{
			Message: "resume node does not exist: " + nextNode,
			Code:    "NODE_NOT_FOUND",
		}
	}

	if e.emitter != nil {
		e.emitter.Emit(emit.Event{
			RunID:  runID,
			Step:   lastStep,
			NodeID: nextNode,
			Msg:    "resuming from checkpoint",
		})
	}

	return e.run(ctx, runID, state, nextNode, lastStep)
}

func (e *Engine[S]) validate() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.reducer == nil {
		return &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if e.startNode == "" {
		return &EngineError{Message: "start node not set (call StartAt before Run)", Code: "NO_START_NODE"}
	}
	if _, exists := e.nodes[e.startNode]; !exists {
		return &EngineError{Message: "start node does not exist: " + e.startNode, Code: "NODE_NOT_FOUND"}
	}
	return nil
}

// run is the shared execution loop for Run and Resume.
func (e *Engine[S]) run(ctx context.Context, runID string, initial S, startNode string, startStep int) (S, error) {
	var zero S

	currentState := initial
	currentNode := startNode
	step := startStep

	for {
		step++

		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			return zero, &EngineError{
				Message: ErrMaxStepsExceeded.Error(),
				Code:    "MAX_STEPS_EXCEEDED",
			}
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[currentNode]
		e.mu.RUnlock()
		if !exists {
			return zero, &EngineError{
				Message: "node not found during execution: " + currentNode,
				Code:    "NODE_NOT_FOUND",
			}
		}

		started := time.Now()
		result := e.executeNode(ctx, nodeImpl, currentNode, currentState)
		if e.metrics != nil {
			e.metrics.ObserveStep(currentNode, time.Since(started), result.Err)
		}

		// A node-level error aborts the run. Collaborator failures never
		// reach here; nodes absorb them into their delta.
		if result.Err != nil {
			if e.emitter != nil {
				e.emitter.Emit(emit.Event{
					RunID:  runID,
					Step:   step,
					NodeID: currentNode,
					Msg:    "node failed",
					Meta:   map[string]interface{}{"error": result.Err.Error()},
				})
			}
			return zero, result.Err
		}

		currentState = e.reducer(currentState, result.Delta)

		if err := e.store.SaveStep(ctx, runID, step, currentNode, currentState); err != nil {
			return zero, &EngineError{
				Message: "failed to save step: " + err.Error(),
				Code:    "STORE_ERROR",
			}
		}

		if e.emitter != nil {
			e.emitter.Emit(emit.Event{
				RunID:  runID,
				Step:   step,
				NodeID: currentNode,
				Msg:    "node completed",
			})
		}

		if e.onStep != nil {
			e.onStep(StepEvent[S]{
				RunID:  runID,
				Step:   step,
				NodeID: currentNode,
				Delta:  result.Delta,
				State:  currentState,
			})
		}

		if result.Route.Terminal {
			return currentState, nil
		}
		if result.Route.To != "" {
			currentNode = result.Route.To
			continue
		}

		nextNode := e.evaluateEdges(currentNode, currentState)
		if nextNode == "" {
			return zero, &EngineError{
				Message: "no valid route from node: " + currentNode,
				Code:    "NO_ROUTE",
			}
		}
		currentNode = nextNode
	}
}

// executeNode runs a node, applying the engine-wide node timeout when set.
//
// The node receives a context with the deadline; a node that returns after
// the deadline expired without reporting its own error fails with
// NODE_TIMEOUT. Collaborator timeouts inside the node are the node's own
// degraded path and do not trip this check as long as the node finishes in
// time.
func (e *Engine[S]) executeNode(ctx context.Context, node Node[S], nodeID string, state S) NodeResult[S] {
	if e.opts.NodeTimeout <= 0 {
		return node.Run(ctx, state)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.opts.NodeTimeout)
	defer cancel()

	result := node.Run(timeoutCtx, state)
	if result.Err == nil && timeoutCtx.Err() == context.DeadlineExceeded {
		result.Err = &NodeError{
			Message: "node exceeded timeout of " + e.opts.NodeTimeout.String(),
			Code:    "NODE_TIMEOUT",
			NodeID:  nodeID,
		}
	}
	return result
}

// evaluateEdges finds the first matching edge from the given node based on
// predicates. An edge with a nil predicate always matches; otherwise the
// predicate is evaluated against the merged state. First match wins.
//
// Returns empty string if no edges match.
func (e *Engine[S]) evaluateEdges(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}
