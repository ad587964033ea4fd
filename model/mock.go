package model

import "context"

// MockModel is a test implementation of ChatModel that returns
// pre-configured responses without making API calls.
//
// Responses are consumed in order; when they run out the last one
// repeats. It also records every request so tests can assert on the
// prompts the workflow built.
//
// MockModel is not safe for concurrent use; research workflow nodes
// call the model sequentially.
//
// Example usage:
//
//	mock := &MockModel{
//	    Responses: []ChatOut{
//	        {Text: `{"search_queries": ["a", "b"], "reasoning": "broad"}`},
//	        {Text: "analysis text"},
//	    },
//	}
type MockModel struct {
	// Responses is the ordered list of responses to return.
	Responses []ChatOut

	// Err, when non-nil, is returned by every Chat call instead of a
	// response.
	Err error

	// Calls records the messages of each Chat invocation.
	Calls [][]Message

	next int
}

// Name returns "mock" as the provider identifier.
func (m *MockModel) Name() string {
	return "mock"
}

// Chat returns the next pre-configured response.
//
// Respects context cancellation like a real provider would.
func (m *MockModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.Calls = append(m.Calls, messages)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, &GenerationError{
			Code:     "empty_response",
			Message:  "mock has no responses configured",
			Provider: m.Name(),
		}
	}

	idx := m.next
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[idx], nil
}
