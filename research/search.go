package research

import (
	"context"
	"fmt"

	"github.com/dshills/deepresearch/fetch"
	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/search"
)

// Limits for one search invocation.
const (
	maxSearchQueries    = 3
	maxResultsPerQuery  = 5
	sourceContentBudget = 5000
)

// SearchNode executes the latest plan's search queries, gathers unique
// sources, and decides where the workflow goes next.
//
// Per-source failures are absorbed: a failed search query contributes
// nothing, a failed page fetch falls back to the search snippet. The
// node itself never errors.
//
// Routing runs on the node's locally merged view of the state. When the
// route loops back to search, the delta advances the iteration counter;
// the trace entry keeps the pre-advance value.
type SearchNode struct {
	Searcher search.Searcher
	Fetcher  *fetch.Fetcher
}

// Run implements graph.Node.
func (n *SearchNode) Run(ctx context.Context, state State) graph.NodeResult[State] {
	queries := []string{state.Query}
	if plan := latestPlan(state); plan != nil && len(plan.SearchQueries) > 0 {
		queries = plan.SearchQueries
	}
	if len(queries) > maxSearchQueries {
		queries = queries[:maxSearchQueries]
	}

	seen := make(map[string]bool, len(state.Sources))
	for _, s := range state.Sources {
		seen[s.URL] = true
	}

	var gathered []Source
	for _, query := range queries {
		results, err := n.Searcher.Search(ctx, query, maxResultsPerQuery)
		if err != nil {
			// Absorbed: other queries may still deliver
			continue
		}

		for _, r := range results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			gathered = append(gathered, n.buildSource(ctx, query, r))
		}
	}

	delta := State{
		Sources: gathered,
		Trace: []TraceEntry{{
			Step:      NodeSearch,
			Content:   fmt.Sprintf("Found %d unique sources", len(gathered)),
			Iteration: state.Iteration,
		}},
		Messages: []Message{
			{Role: "assistant", Content: fmt.Sprintf("Gathered %d sources", len(gathered))},
		},
	}

	// Route on the merged view this step produces
	merged := Reduce(state, delta)
	next := Route(merged)
	if next == NodeSearch {
		delta.Iteration = state.Iteration + 1
	}

	return graph.NodeResult[State]{
		Delta: delta,
		Route: graph.Goto(next),
	}
}

// buildSource converts a search result into a Source, fetching the page
// content when possible.
func (n *SearchNode) buildSource(ctx context.Context, query string, r search.Result) Source {
	content := r.Snippet
	if n.Fetcher != nil {
		if article, err := n.Fetcher.Fetch(ctx, r.URL); err == nil && article.Text != "" {
			content = truncate(article.Text, sourceContentBudget)
		}
	}

	return Source{
		URL:         r.URL,
		Title:       r.Title,
		Snippet:     r.Snippet,
		Content:     content,
		PublishedAt: r.PublishedDate,
		Query:       query,
		Score:       r.Score,
	}
}
