package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/model"
)

// SynthesisNode writes the final cited report from the analysis and the
// gathered sources. It is the terminal node of the graph.
//
// A model failure here aborts the run; there is no report to fall back
// to.
type SynthesisNode struct {
	Model model.ChatModel
}

// Run implements graph.Node.
func (n *SynthesisNode) Run(ctx context.Context, state State) graph.NodeResult[State] {
	prompt := buildSynthesisPrompt(state)

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	})
	if err != nil {
		return graph.NodeResult[State]{
			Err: &graph.NodeError{
				Message: "report generation failed",
				Code:    "GENERATION_FAILED",
				NodeID:  NodeSynthesis,
				Cause:   err,
			},
		}
	}

	return graph.NodeResult[State]{
		Delta: State{
			FinalAnswer: out.Text,
			Trace: []TraceEntry{{
				Step:      NodeSynthesis,
				Content:   "Final report generated",
				Iteration: state.Iteration,
			}},
			Messages: []Message{
				{Role: "assistant", Content: out.Text},
			},
		},
		Route: graph.Stop(),
	}
}

func buildSynthesisPrompt(state State) string {
	// The most recent analysis, if the run reached that stage
	var analysis string
	for i := len(state.Trace) - 1; i >= 0; i-- {
		if state.Trace[i].Step == NodeAnalysis {
			analysis = state.Trace[i].Content
			break
		}
	}

	var sb strings.Builder
	sb.WriteString("Create a comprehensive research report answering the query.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(state.Query)
	sb.WriteString("\n\nAnalysis:\n")
	sb.WriteString(analysis)
	sb.WriteString("\n\nAvailable Sources:\n")
	for i, s := range state.Sources {
		fmt.Fprintf(&sb, "[%d] %s - %s\n", i+1, s.Title, s.URL)
	}

	sb.WriteString(`
Create a well-structured report with:
1. Executive Summary
2. Detailed Findings
3. Data Analysis
4. Conclusion and Recommendations

Use inline citations like [1], [2] to reference sources.
Be specific with numbers, dates, and metrics.
Maintain objectivity and note any limitations.`)

	return sb.String()
}
