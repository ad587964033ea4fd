package research

// Node IDs of the research graph.
const (
	NodePlanning  = "planning"
	NodeSearch    = "search"
	NodeAnalysis  = "analysis"
	NodeSynthesis = "synthesis"
)

// Route decides where the workflow goes after a search step.
//
// It is a pure function of the merged state, evaluated first-match:
//
//  1. Iteration budget exhausted: go straight to synthesis with
//     whatever has been gathered.
//  2. Enough sources (10 or more): move on to analysis.
//  3. Otherwise: search again.
//
// The same state always routes the same way.
func Route(s State) string {
	if s.Iteration >= s.MaxIterations {
		return NodeSynthesis
	}
	if len(s.Sources) >= sourceTarget {
		return NodeAnalysis
	}
	return NodeSearch
}

// sourceTarget is the number of gathered sources considered enough to
// begin analysis.
const sourceTarget = 10
