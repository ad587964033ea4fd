package research

import (
	"context"
	"time"
	"unicode/utf8"
)

// Event types emitted by Workflow.Stream.
const (
	// EventThinking carries one trace entry as it is produced.
	EventThinking = "thinking"

	// EventSources carries newly gathered sources after a search step.
	EventSources = "sources"

	// EventAnswer carries one chunk of the final answer. Concatenating
	// all answer chunks reproduces the final answer exactly.
	EventAnswer = "answer"

	// EventDone carries the full sources and trace after completion.
	EventDone = "done"

	// EventError carries the failure message of an aborted run. It is
	// always the last event when present.
	EventError = "error"
)

// Event is one frame of a streamed research run. Content varies by
// Type: a TraceEntry for thinking, []Source for sources, a string chunk
// for answer, DoneContent for done, a string message for error.
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// DoneContent is the payload of the final done event.
type DoneContent struct {
	Sources []Source     `json:"sources"`
	Trace   []TraceEntry `json:"thinking_trace"`
}

// chunkAnswer splits the answer into roughly fixed-size pieces and
// sends them as answer events with a pacing delay between chunks,
// simulating token-by-token delivery.
//
// Chunk boundaries land on rune starts so every chunk is valid UTF-8 on
// its own; each chunk is JSON-encoded independently on the wire, and a
// split rune would not survive that. Stops early when ctx is canceled;
// never splits or drops bytes otherwise.
func chunkAnswer(ctx context.Context, out chan<- Event, answer string, size int, delay time.Duration) bool {
	if size <= 0 {
		size = 10
	}

	for i := 0; i < len(answer); {
		end := i + size
		if end >= len(answer) {
			end = len(answer)
		} else {
			for end > i && !utf8.RuneStart(answer[end]) {
				end--
			}
			// A rune wider than the chunk size still makes progress
			if end == i {
				_, width := utf8.DecodeRuneInString(answer[i:])
				end = i + width
			}
		}

		if !send(ctx, out, Event{Type: EventAnswer, Content: answer[i:end]}) {
			return false
		}

		if delay > 0 && end < len(answer) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false
			}
		}
		i = end
	}
	return true
}

// send delivers an event unless the context is canceled first.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
