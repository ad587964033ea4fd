package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dshills/deepresearch/fetch"
	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/graph/emit"
	"github.com/dshills/deepresearch/graph/store"
	"github.com/dshills/deepresearch/memory"
	"github.com/dshills/deepresearch/model"
	"github.com/dshills/deepresearch/search"
)

// memoryContextLimit is how many past interactions seed a new run.
const memoryContextLimit = 5

// Options tunes workflow execution.
type Options struct {
	// MaxIterations is the default search loop budget when a request
	// doesn't specify one. Zero selects 5.
	MaxIterations int

	// ChunkSize is the answer streaming chunk length in bytes.
	// Zero selects 10.
	ChunkSize int

	// ChunkDelay is the pacing delay between answer chunks.
	// Zero selects 10ms. Negative disables pacing (tests).
	ChunkDelay time.Duration

	// NodeTimeout bounds each node execution; zero means unbounded.
	NodeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = 5
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = 10
	}
	if o.ChunkDelay == 0 {
		o.ChunkDelay = 10 * time.Millisecond
	}
	if o.ChunkDelay < 0 {
		o.ChunkDelay = 0
	}
	return o
}

// Deps are the collaborators a Workflow needs.
type Deps struct {
	Model    model.ChatModel
	Searcher search.Searcher
	Fetcher  *fetch.Fetcher
	Store    store.Store[State]
	Memory   *memory.Manager
	Emitter  emit.Emitter
	Metrics  *graph.Metrics
	Options  Options
}

// Request describes one research run.
type Request struct {
	// Query is the research question. Required.
	Query string `json:"query"`

	// ThreadID identifies the conversation. Required. Together with
	// UserID it keys the checkpoint, so a crashed run with the same
	// identity resumes instead of restarting.
	ThreadID string `json:"thread_id"`

	// UserID identifies the user. Required. Scopes long-term memory.
	UserID string `json:"user_id"`

	// ShowThinking includes trace entries in responses and streams.
	ShowThinking bool `json:"show_thinking"`

	// MaxIterations overrides the search loop budget. Zero uses the
	// workflow default.
	MaxIterations int `json:"max_iterations"`
}

// runIDSeparator joins thread and user into a checkpoint key. IDs may
// not contain it, or two distinct identity pairs could produce the
// same key and cross-link their conversations.
const runIDSeparator = "::"

// Validate checks required request fields.
func (r Request) Validate() error {
	if r.Query == "" {
		return errors.New("query is required")
	}
	if r.ThreadID == "" {
		return errors.New("thread_id is required")
	}
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if strings.Contains(r.ThreadID, runIDSeparator) {
		return errors.New("thread_id must not contain \"::\"")
	}
	if strings.Contains(r.UserID, runIDSeparator) {
		return errors.New("user_id must not contain \"::\"")
	}
	if r.MaxIterations < 0 {
		return errors.New("max_iterations must be non-negative")
	}
	return nil
}

// RunID returns the checkpoint key for this request's conversation.
func (r Request) RunID() string {
	return r.ThreadID + runIDSeparator + r.UserID
}

// Workflow executes research runs over the planning, search, analysis,
// synthesis graph.
//
// A Workflow is safe for concurrent runs: each run builds its own
// engine over the shared collaborators.
type Workflow struct {
	deps Deps
	opts Options
}

// NewWorkflow creates a research workflow.
func NewWorkflow(deps Deps) *Workflow {
	if deps.Emitter == nil {
		deps.Emitter = emit.NewNullEmitter()
	}
	return &Workflow{deps: deps, opts: deps.Options.withDefaults()}
}

// buildEngine assembles the research graph for one run.
//
// Search routes explicitly via Route; the planning -> search and
// analysis -> synthesis transitions ride on unconditional edges.
func (w *Workflow) buildEngine(onStep func(graph.StepEvent[State])) (*graph.Engine[State], error) {
	// Worst case every allowed loop plus the fixed stages, with slack
	maxSteps := 2*w.opts.MaxIterations + 16

	engine := graph.New(Reduce, w.deps.Store, w.deps.Emitter, graph.Options{
		MaxSteps:    maxSteps,
		NodeTimeout: w.opts.NodeTimeout,
	})
	if w.deps.Metrics != nil {
		engine.SetMetrics(w.deps.Metrics)
	}
	if onStep != nil {
		engine.OnStep(onStep)
	}

	nodes := map[string]graph.Node[State]{
		NodePlanning:  &PlanningNode{Model: w.deps.Model},
		NodeSearch:    &SearchNode{Searcher: w.deps.Searcher, Fetcher: w.deps.Fetcher},
		NodeAnalysis:  &AnalysisNode{Model: w.deps.Model},
		NodeSynthesis: &SynthesisNode{Model: w.deps.Model},
	}
	for id, node := range nodes {
		if err := engine.Add(id, node); err != nil {
			return nil, err
		}
	}

	if err := engine.Connect(NodePlanning, NodeSearch, nil); err != nil {
		return nil, err
	}
	if err := engine.Connect(NodeAnalysis, NodeSynthesis, nil); err != nil {
		return nil, err
	}
	if err := engine.StartAt(NodePlanning); err != nil {
		return nil, err
	}
	return engine, nil
}

// Run executes a research request to completion and returns the final
// state.
//
// If an incomplete checkpoint exists for the request's conversation,
// the run resumes after the last completed node instead of starting
// over. A checkpoint with a final answer is treated as a finished
// conversation and the run starts fresh.
func (w *Workflow) Run(ctx context.Context, req Request) (State, error) {
	return w.run(ctx, req, nil)
}

func (w *Workflow) run(ctx context.Context, req Request, onStep func(graph.StepEvent[State])) (State, error) {
	var zero State
	if err := req.Validate(); err != nil {
		return zero, err
	}

	engine, err := w.buildEngine(onStep)
	if err != nil {
		return zero, err
	}

	if w.deps.Metrics != nil {
		w.deps.Metrics.RunStarted()
	}
	status := "completed"
	defer func() {
		if w.deps.Metrics != nil {
			w.deps.Metrics.RunFinished(status)
		}
	}()

	runID := req.RunID()

	final, err := w.execute(ctx, engine, runID, req)
	if err != nil {
		status = "failed"
		if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
		return zero, err
	}

	if w.deps.Metrics != nil {
		w.deps.Metrics.AddSources(len(final.Sources))
	}

	w.saveMemory(ctx, req, final)
	return final, nil
}

// execute decides between a fresh run and a checkpoint resume.
func (w *Workflow) execute(ctx context.Context, engine *graph.Engine[State], runID string, req Request) (State, error) {
	saved, step, nodeID, err := w.deps.Store.LoadLatest(ctx, runID)
	if err == nil && saved.FinalAnswer == "" && len(saved.Trace) > 0 {
		next := nextNodeAfter(nodeID, saved)
		if next != "" {
			return engine.Resume(ctx, runID, saved, next, step)
		}
	}

	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = w.opts.MaxIterations
	}

	initial := State{
		Query:         req.Query,
		ThreadID:      req.ThreadID,
		UserID:        req.UserID,
		MaxIterations: maxIterations,
		ShowThinking:  req.ShowThinking,
		MemoryContext: w.loadMemoryContext(ctx, req),
	}

	return engine.Run(ctx, runID, initial)
}

// nextNodeAfter maps the last checkpointed node to the node a resumed
// run executes next. Empty means the run already finished.
func nextNodeAfter(nodeID string, s State) string {
	switch nodeID {
	case NodePlanning:
		return NodeSearch
	case NodeSearch:
		return Route(s)
	case NodeAnalysis:
		return NodeSynthesis
	default:
		return ""
	}
}

// loadMemoryContext retrieves relevant past interactions. Failures are
// absorbed; a run without memory context is still a valid run.
func (w *Workflow) loadMemoryContext(ctx context.Context, req Request) []string {
	if w.deps.Memory == nil {
		return nil
	}

	records, err := w.deps.Memory.RetrieveRelevant(ctx, req.UserID, req.Query, memoryContextLimit)
	if err != nil {
		w.deps.Emitter.Emit(emit.Event{
			RunID: req.RunID(),
			Msg:   "memory retrieval failed",
			Meta:  map[string]interface{}{"error": err.Error()},
		})
		return nil
	}

	contexts := make([]string, 0, len(records))
	for _, r := range records {
		contexts = append(contexts, r.Content)
	}
	return contexts
}

// saveMemory records the completed interaction. Failures are absorbed.
func (w *Workflow) saveMemory(ctx context.Context, req Request, final State) {
	if w.deps.Memory == nil {
		return
	}

	err := w.deps.Memory.SaveInteraction(ctx, req.UserID, req.ThreadID, req.Query, final.FinalAnswer, len(final.Sources))
	if err != nil {
		w.deps.Emitter.Emit(emit.Event{
			RunID: req.RunID(),
			Msg:   "memory save failed",
			Meta:  map[string]interface{}{"error": err.Error()},
		})
	}
}

// Stream executes a research request and delivers progress as an
// ordered event sequence.
//
// Event order: per completed step a thinking event (when the request
// asks for it) and a sources event after searches that gathered
// anything; then the final answer in paced chunks; then a single done
// event. A failed run ends with a single error event instead. The
// channel closes when the run is over.
//
// Canceling ctx stops the underlying run and the stream.
func (w *Workflow) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		onStep := func(ev graph.StepEvent[State]) {
			if req.ShowThinking && len(ev.Delta.Trace) > 0 {
				entry := ev.Delta.Trace[len(ev.Delta.Trace)-1]
				if !send(ctx, out, Event{Type: EventThinking, Content: entry}) {
					return
				}
			}
			if ev.NodeID == NodeSearch && len(ev.Delta.Sources) > 0 {
				if !send(ctx, out, Event{Type: EventSources, Content: ev.Delta.Sources}) {
					return
				}
			}
		}

		final, err := w.run(ctx, req, onStep)
		if err != nil {
			send(ctx, out, Event{Type: EventError, Content: err.Error()})
			return
		}

		if !chunkAnswer(ctx, out, final.FinalAnswer, w.opts.ChunkSize, w.opts.ChunkDelay) {
			return
		}

		send(ctx, out, Event{Type: EventDone, Content: DoneContent{
			Sources: final.Sources,
			Trace:   final.Trace,
		}})
	}()

	return out
}
