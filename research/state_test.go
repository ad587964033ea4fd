package research

import (
	"encoding/json"
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestReduceAppendsInOrder(t *testing.T) {
	prev := State{
		Sources: []Source{{URL: "https://a"}},
		Trace:   []TraceEntry{{Step: NodePlanning}},
		Messages: []Message{
			{Role: "assistant", Content: "first"},
		},
	}
	delta := State{
		Sources: []Source{{URL: "https://b"}, {URL: "https://c"}},
		Trace:   []TraceEntry{{Step: NodeSearch}},
		Messages: []Message{
			{Role: "assistant", Content: "second"},
		},
	}

	out := Reduce(prev, delta)

	if len(out.Sources) != 3 || out.Sources[2].URL != "https://c" {
		t.Errorf("Sources = %v", out.Sources)
	}
	if len(out.Trace) != 2 || out.Trace[1].Step != NodeSearch {
		t.Errorf("Trace = %v", out.Trace)
	}
	if len(out.Messages) != 2 || out.Messages[1].Content != "second" {
		t.Errorf("Messages = %v", out.Messages)
	}
}

func TestReduceEmptyDeltaKeepsState(t *testing.T) {
	prev := State{
		Query:       "q",
		Sources:     []Source{{URL: "https://a"}},
		FinalAnswer: "answer",
		Iteration:   2,
	}

	out := Reduce(prev, State{})

	if !reflect.DeepEqual(out, prev) {
		t.Errorf("Reduce with empty delta changed state:\ngot  %+v\nwant %+v", out, prev)
	}
}

func TestReduceReplacesAnswer(t *testing.T) {
	out := Reduce(State{FinalAnswer: "old"}, State{FinalAnswer: "new"})
	if out.FinalAnswer != "new" {
		t.Errorf("FinalAnswer = %q, want new", out.FinalAnswer)
	}

	out = Reduce(State{FinalAnswer: "kept"}, State{})
	if out.FinalAnswer != "kept" {
		t.Errorf("FinalAnswer = %q, want kept", out.FinalAnswer)
	}
}

func TestReduceIterationOnlyAdvances(t *testing.T) {
	out := Reduce(State{Iteration: 1}, State{Iteration: 2})
	if out.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", out.Iteration)
	}

	// A zero or stale delta never rolls the counter back
	out = Reduce(State{Iteration: 2}, State{})
	if out.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", out.Iteration)
	}
	out = Reduce(State{Iteration: 3}, State{Iteration: 1})
	if out.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", out.Iteration)
	}
}

func TestReducePreservesIdentityFields(t *testing.T) {
	prev := State{
		Query:         "original query",
		ThreadID:      "thread-1",
		UserID:        "user-1",
		MaxIterations: 5,
		MemoryContext: []string{"past"},
		ShowThinking:  true,
	}
	delta := State{
		Query:    "should be ignored",
		ThreadID: "ignored",
	}

	out := Reduce(prev, delta)

	if out.Query != "original query" || out.ThreadID != "thread-1" || out.UserID != "user-1" {
		t.Errorf("identity fields changed: %+v", out)
	}
	if out.MaxIterations != 5 || !out.ShowThinking {
		t.Errorf("settings changed: %+v", out)
	}
}

func TestReduceDeterministic(t *testing.T) {
	prev := State{Sources: []Source{{URL: "https://a"}}, Iteration: 1}
	delta := State{Sources: []Source{{URL: "https://b"}}, Iteration: 2}

	first := Reduce(prev, delta)
	second := Reduce(prev, delta)

	if !reflect.DeepEqual(first, second) {
		t.Error("Reduce is not deterministic")
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	original := State{
		Query:         "hdfc home loan rates",
		ThreadID:      "thread-1",
		UserID:        "user-1",
		MaxIterations: 3,
		ShowThinking:  true,
		MemoryContext: []string{"Query: past\n\nAnswer: ..."},
		Sources: []Source{
			{URL: "https://a", Title: "A", Snippet: "s", Content: "c", Query: "q", Score: 0.9},
		},
		Trace: []TraceEntry{
			{Step: NodePlanning, Plan: &Plan{SearchQueries: []string{"q"}, Reasoning: "r"}, Iteration: 0},
			{Step: NodeSearch, Content: "Found 1 unique sources", Iteration: 0},
		},
		Messages:    []Message{{Role: "assistant", Content: "m"}},
		FinalAnswer: "report",
		Iteration:   1,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", decoded, original)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short string untouched", "abc", 10, "abc"},
		{"exact length untouched", "abcde", 5, "abcde"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"boundary after full rune kept", "ab₹cd", 5, "ab₹"},
		{"cut two bytes into rune drops it", "ab₹cd", 4, "ab"},
		{"cut one byte into rune drops it", "ab₹cd", 3, "ab"},
		{"zero max", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestLatestPlan(t *testing.T) {
	t.Run("no plan", func(t *testing.T) {
		if latestPlan(State{}) != nil {
			t.Error("expected nil for empty trace")
		}
	})

	t.Run("most recent plan wins", func(t *testing.T) {
		s := State{Trace: []TraceEntry{
			{Step: NodePlanning, Plan: &Plan{Reasoning: "first"}},
			{Step: NodeSearch, Content: "found"},
			{Step: NodePlanning, Plan: &Plan{Reasoning: "second"}},
		}}
		plan := latestPlan(s)
		if plan == nil || plan.Reasoning != "second" {
			t.Errorf("plan = %+v, want the second plan", plan)
		}
	})
}
