// Package research implements the multi-step financial research workflow:
// planning, iterative web search, analysis, and synthesis of a cited
// final report.
package research

import "unicode/utf8"

// Source is one gathered web source. Identity is the URL; the search
// stage never adds the same URL twice within a run.
type Source struct {
	// URL locates the source and deduplicates it.
	URL string `json:"url"`

	// Title is the page title from the search provider.
	Title string `json:"title"`

	// Snippet is the search provider's summary.
	Snippet string `json:"snippet"`

	// Content is the fetched page text, truncated. Falls back to the
	// snippet when the fetch failed.
	Content string `json:"content"`

	// PublishedAt is the provider-reported publication date, empty when
	// unknown.
	PublishedAt string `json:"publishedAt,omitempty"`

	// Query is the search query that found this source.
	Query string `json:"query"`

	// Score is the provider's relevance score.
	Score float64 `json:"score"`
}

// Plan is the structured research plan produced by the planning stage.
type Plan struct {
	KeyQuestions  []string `json:"key_questions"`
	SearchQueries []string `json:"search_queries"`
	Metrics       []string `json:"metrics"`
	Reasoning     string   `json:"reasoning"`
}

// TraceEntry is one step of the visible thinking trace.
//
// The planning entry carries the plan; search, analysis, and synthesis
// entries carry text content. Iteration records the loop counter at the
// time the step ran.
type TraceEntry struct {
	Step      string `json:"step"`
	Content   string `json:"content,omitempty"`
	Plan      *Plan  `json:"plan,omitempty"`
	Iteration int    `json:"iteration"`
}

// Message is a conversational progress message accumulated during the
// run ("Research plan created: ...", "Gathered N sources").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the research workflow state. It is checkpointed after every
// node, so all fields must round-trip through JSON.
//
// Field groups:
//   - Identity (Query, ThreadID, UserID, MaxIterations, MemoryContext,
//     ShowThinking): set once at run creation, never modified by nodes
//   - Accumulating (Messages, Sources, Trace): nodes append via deltas
//   - Replacing (FinalAnswer, Iteration): the latest non-zero delta wins
type State struct {
	Query         string   `json:"query"`
	ThreadID      string   `json:"thread_id"`
	UserID        string   `json:"user_id"`
	MaxIterations int      `json:"max_iterations"`
	MemoryContext []string `json:"memory_context,omitempty"`
	ShowThinking  bool     `json:"show_thinking"`

	Messages []Message    `json:"messages,omitempty"`
	Sources  []Source     `json:"sources,omitempty"`
	Trace    []TraceEntry `json:"thinking_trace,omitempty"`

	FinalAnswer string `json:"final_answer,omitempty"`
	Iteration   int    `json:"iteration"`
}

// Reduce merges a node's partial update into the previous state.
//
// It composes the per-field merge rules below and is deterministic:
// the same prev and delta always produce the same result.
func Reduce(prev, delta State) State {
	out := prev
	out.Messages = appendMessages(prev.Messages, delta.Messages)
	out.Sources = appendSources(prev.Sources, delta.Sources)
	out.Trace = appendTrace(prev.Trace, delta.Trace)
	out.FinalAnswer = replaceAnswer(prev.FinalAnswer, delta.FinalAnswer)
	out.Iteration = replaceIteration(prev.Iteration, delta.Iteration)
	return out
}

// appendMessages concatenates in order, no dedup.
func appendMessages(prev, delta []Message) []Message {
	if len(delta) == 0 {
		return prev
	}
	out := make([]Message, 0, len(prev)+len(delta))
	out = append(out, prev...)
	return append(out, delta...)
}

// appendSources concatenates in order. Dedup by URL happens in the
// search node, not at merge time.
func appendSources(prev, delta []Source) []Source {
	if len(delta) == 0 {
		return prev
	}
	out := make([]Source, 0, len(prev)+len(delta))
	out = append(out, prev...)
	return append(out, delta...)
}

// appendTrace concatenates in order, preserving step ordering.
func appendTrace(prev, delta []TraceEntry) []TraceEntry {
	if len(delta) == 0 {
		return prev
	}
	out := make([]TraceEntry, 0, len(prev)+len(delta))
	out = append(out, prev...)
	return append(out, delta...)
}

// replaceAnswer keeps the previous answer unless the delta carries one.
func replaceAnswer(prev, delta string) string {
	if delta != "" {
		return delta
	}
	return prev
}

// replaceIteration keeps the previous counter unless the delta advanced
// it. The counter only ever moves forward.
func replaceIteration(prev, delta int) int {
	if delta > prev {
		return delta
	}
	return prev
}

// latestPlan returns the most recent plan in the trace, or nil when
// planning hasn't run.
func latestPlan(s State) *Plan {
	for i := len(s.Trace) - 1; i >= 0; i-- {
		if s.Trace[i].Plan != nil {
			return s.Trace[i].Plan
		}
	}
	return nil
}

// truncate bounds s to at most max bytes, backing up to a rune start so
// the cut never leaves a partial UTF-8 sequence behind.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
