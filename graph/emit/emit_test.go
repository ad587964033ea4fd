package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func sampleEvent() Event {
	return Event{
		RunID:  "thread-1::user-1",
		Step:   2,
		NodeID: "search",
		Msg:    "node completed",
		Meta: map[string]interface{}{
			"sources": 4,
		},
	}
}

func TestNullEmitter(t *testing.T) {
	emitter := NewNullEmitter()

	// Should not panic on any input
	emitter.Emit(sampleEvent())
	emitter.Emit(Event{})
}

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(sampleEvent())

	out := buf.String()
	for _, want := range []string{
		"[node completed]",
		"runID=thread-1::user-1",
		"step=2",
		"nodeID=search",
		`"sources":4`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q, got: %s", want, out)
		}
	}
}

func TestLogEmitterTextNoMeta(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	ev := sampleEvent()
	ev.Meta = nil
	emitter.Emit(ev)

	if strings.Contains(buf.String(), "meta=") {
		t.Errorf("expected no meta section, got: %s", buf.String())
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(sampleEvent())

	var decoded struct {
		RunID  string                 `json:"runID"`
		Step   int                    `json:"step"`
		NodeID string                 `json:"nodeID"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if decoded.RunID != "thread-1::user-1" {
		t.Errorf("RunID = %q, want thread-1::user-1", decoded.RunID)
	}
	if decoded.Step != 2 {
		t.Errorf("Step = %d, want 2", decoded.Step)
	}
	if decoded.Msg != "node completed" {
		t.Errorf("Msg = %q, want 'node completed'", decoded.Msg)
	}
	if got := decoded.Meta["sources"]; got != float64(4) {
		t.Errorf("Meta[sources] = %v, want 4", got)
	}
}

func TestBufferedEmitter(t *testing.T) {
	t.Run("stores events in order", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		for i := 1; i <= 3; i++ {
			ev := sampleEvent()
			ev.Step = i
			emitter.Emit(ev)
		}

		history := emitter.GetHistory("thread-1::user-1")
		if len(history) != 3 {
			t.Fatalf("len(history) = %d, want 3", len(history))
		}
		for i, ev := range history {
			if ev.Step != i+1 {
				t.Errorf("history[%d].Step = %d, want %d", i, ev.Step, i+1)
			}
		}
	})

	t.Run("isolates runs", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		a := sampleEvent()
		a.RunID = "run-a"
		b := sampleEvent()
		b.RunID = "run-b"
		emitter.Emit(a)
		emitter.Emit(b)

		if got := len(emitter.GetHistory("run-a")); got != 1 {
			t.Errorf("run-a history = %d events, want 1", got)
		}
		if got := len(emitter.GetHistory("run-b")); got != 1 {
			t.Errorf("run-b history = %d events, want 1", got)
		}
	})

	t.Run("empty history for unknown run", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		history := emitter.GetHistory("no-such-run")
		if history == nil || len(history) != 0 {
			t.Errorf("GetHistory = %v, want empty slice", history)
		}
	})

	t.Run("clear specific run", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		a := sampleEvent()
		a.RunID = "run-a"
		b := sampleEvent()
		b.RunID = "run-b"
		emitter.Emit(a)
		emitter.Emit(b)

		emitter.Clear("run-a")

		if got := len(emitter.GetHistory("run-a")); got != 0 {
			t.Errorf("run-a history after clear = %d, want 0", got)
		}
		if got := len(emitter.GetHistory("run-b")); got != 1 {
			t.Errorf("run-b history after clear = %d, want 1", got)
		}
	})

	t.Run("clear all runs", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		a := sampleEvent()
		a.RunID = "run-a"
		b := sampleEvent()
		b.RunID = "run-b"
		emitter.Emit(a)
		emitter.Emit(b)

		emitter.Clear("")

		if got := len(emitter.GetHistory("run-a")); got != 0 {
			t.Errorf("run-a history after clear all = %d, want 0", got)
		}
		if got := len(emitter.GetHistory("run-b")); got != 0 {
			t.Errorf("run-b history after clear all = %d, want 0", got)
		}
	})

	t.Run("concurrent emits", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(step int) {
				defer wg.Done()
				ev := sampleEvent()
				ev.Step = step
				emitter.Emit(ev)
			}(i)
		}
		wg.Wait()

		if got := len(emitter.GetHistory("thread-1::user-1")); got != 10 {
			t.Errorf("history = %d events, want 10", got)
		}
	})
}

func TestOTelEmitter(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	emitter := NewOTelEmitter(provider.Tracer("test"))

	emitter.Emit(sampleEvent())

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}

	span := spans[0]
	if span.Name() != "node completed" {
		t.Errorf("span name = %q, want 'node completed'", span.Name())
	}

	attrs := make(map[string]interface{})
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["run_id"] != "thread-1::user-1" {
		t.Errorf("run_id attr = %v, want thread-1::user-1", attrs["run_id"])
	}
	if attrs["node_id"] != "search" {
		t.Errorf("node_id attr = %v, want search", attrs["node_id"])
	}
	if attrs["sources"] != int64(4) {
		t.Errorf("sources attr = %v, want 4", attrs["sources"])
	}
}

func TestOTelEmitterError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	emitter := NewOTelEmitter(provider.Tracer("test"))

	ev := sampleEvent()
	ev.Msg = "node failed"
	ev.Meta = map[string]interface{}{"error": "search provider unavailable"}
	emitter.Emit(ev)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if desc := spans[0].Status().Description; desc != "search provider unavailable" {
		t.Errorf("status description = %q, want 'search provider unavailable'", desc)
	}
}
