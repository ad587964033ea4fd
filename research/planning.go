package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/model"
)

// PlanningNode analyzes the query and produces a structured research
// plan: key questions, search queries, and metrics to examine.
//
// Planning never fails the run. If the model errors or returns
// unparseable output, the node falls back to a direct plan that
// searches the raw query.
type PlanningNode struct {
	Model model.ChatModel
}

// Run implements graph.Node.
func (n *PlanningNode) Run(ctx context.Context, state State) graph.NodeResult[State] {
	plan := n.generatePlan(ctx, state)

	entry := TraceEntry{
		Step:      NodePlanning,
		Plan:      &plan,
		Iteration: state.Iteration,
	}

	return graph.NodeResult[State]{
		Delta: State{
			Trace: []TraceEntry{entry},
			Messages: []Message{
				{Role: "assistant", Content: "Research plan created: " + plan.Reasoning},
			},
		},
		Route: graph.Goto(NodeSearch),
	}
}

func (n *PlanningNode) generatePlan(ctx context.Context, state State) Plan {
	prompt := buildPlanningPrompt(state)

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	})
	if err != nil {
		return fallbackPlan(state.Query)
	}

	plan, err := parsePlan(out.Text)
	if err != nil {
		return fallbackPlan(state.Query)
	}
	return plan
}

func buildPlanningPrompt(state State) string {
	var sb strings.Builder

	sb.WriteString("You are a financial research analyst. Analyze this query and create a research plan.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(state.Query)
	sb.WriteString("\n")

	if len(state.MemoryContext) > 0 {
		sb.WriteString("\nRelevant past context:\n")
		for _, m := range state.MemoryContext {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}

	sb.WriteString(`
Create a structured research plan with:
1. Key questions to answer
2. Data sources to search (financial reports, news, analyst reports)
3. Metrics to analyze
4. Comparison criteria

Respond in JSON format:
{
    "key_questions": ["question1", "question2", ...],
    "search_queries": ["query1", "query2", ...],
    "metrics": ["metric1", "metric2", ...],
    "reasoning": "brief explanation"
}`)

	return sb.String()
}

// parsePlan extracts a Plan from model output, tolerating markdown code
// fences around the JSON.
func parsePlan(text string) (Plan, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return Plan{}, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if len(plan.SearchQueries) == 0 {
		return Plan{}, fmt.Errorf("plan has no search queries")
	}
	return plan, nil
}

// fallbackPlan is used when the model output can't be parsed: search
// the raw query directly.
func fallbackPlan(query string) Plan {
	return Plan{
		KeyQuestions:  []string{query},
		SearchQueries: []string{query},
		Metrics:       []string{"valuation", "performance"},
		Reasoning:     "Direct query analysis",
	}
}
