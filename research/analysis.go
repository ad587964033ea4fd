package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/model"
)

// Limits for the analysis prompt.
const (
	maxAnalysisSources  = 10
	sourceExcerptBudget = 1000
)

// AnalysisNode examines the gathered sources and extracts findings,
// metrics, trends, and risks relevant to the query.
//
// Unlike planning there is no degraded path here: an analysis without a
// model result would feed nothing useful to synthesis, so a model
// failure aborts the run.
type AnalysisNode struct {
	Model model.ChatModel
}

// Run implements graph.Node.
func (n *AnalysisNode) Run(ctx context.Context, state State) graph.NodeResult[State] {
	prompt := buildAnalysisPrompt(state)

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	})
	if err != nil {
		return graph.NodeResult[State]{
			Err: &graph.NodeError{
				Message: "analysis generation failed",
				Code:    "GENERATION_FAILED",
				NodeID:  NodeAnalysis,
				Cause:   err,
			},
		}
	}

	return graph.NodeResult[State]{
		Delta: State{
			Trace: []TraceEntry{{
				Step:      NodeAnalysis,
				Content:   out.Text,
				Iteration: state.Iteration,
			}},
			Messages: []Message{
				{Role: "assistant", Content: "Analysis complete"},
			},
		},
		Route: graph.Goto(NodeSynthesis),
	}
}

func buildAnalysisPrompt(state State) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following sources to answer the research query.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(state.Query)
	sb.WriteString("\n\nKey Questions:\n")

	if plan := latestPlan(state); plan != nil {
		for _, q := range plan.KeyQuestions {
			sb.WriteString("- ")
			sb.WriteString(q)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nSources:\n")
	sources := state.Sources
	if len(sources) > maxAnalysisSources {
		sources = sources[len(sources)-maxAnalysisSources:]
	}
	for i, s := range sources {
		excerpt := truncate(s.Content, sourceExcerptBudget)
		fmt.Fprintf(&sb, "Source %d: %s\nURL: %s\nContent: %s...\n\n", i+1, s.Title, s.URL, excerpt)
	}

	sb.WriteString(`Provide a detailed analysis covering:
1. Key findings from the data
2. Financial metrics and comparisons
3. Trends and patterns
4. Potential concerns or risks

Format your analysis clearly with sections.`)

	return sb.String()
}
