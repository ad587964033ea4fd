package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockModelSequentialResponses(t *testing.T) {
	mock := &MockModel{
		Responses: []ChatOut{
			{Text: "first", TokensUsed: 10},
			{Text: "second", TokensUsed: 20},
		},
	}

	ctx := context.Background()
	out, err := mock.Chat(ctx, []Message{{Role: RoleUser, Content: "q1"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "first" {
		t.Errorf("Text = %q, want first", out.Text)
	}

	out, err = mock.Chat(ctx, []Message{{Role: RoleUser, Content: "q2"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "second" {
		t.Errorf("Text = %q, want second", out.Text)
	}

	// Exhausted responses repeat the last one
	out, _ = mock.Chat(ctx, []Message{{Role: RoleUser, Content: "q3"}})
	if out.Text != "second" {
		t.Errorf("Text = %q, want second (repeated)", out.Text)
	}

	if len(mock.Calls) != 3 {
		t.Errorf("len(Calls) = %d, want 3", len(mock.Calls))
	}
	if mock.Calls[0][0].Content != "q1" {
		t.Errorf("Calls[0] content = %q, want q1", mock.Calls[0][0].Content)
	}
}

func TestMockModelError(t *testing.T) {
	wantErr := &GenerationError{Code: "rate_limited", Message: "slow down", Retryable: true}
	mock := &MockModel{Err: wantErr}

	_, err := mock.Chat(context.Background(), nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Code != "rate_limited" {
		t.Errorf("err = %v, want rate_limited GenerationError", err)
	}
}

func TestMockModelContextCancellation(t *testing.T) {
	mock := &MockModel{Responses: []ChatOut{{Text: "unused"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Chat(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"rate limit", errors.New("429: too many requests"), "rate_limited", true},
		{"bad key", errors.New("401 unauthorized"), "invalid_api_key", false},
		{"quota", errors.New("insufficient_quota for billing period"), "quota_exceeded", false},
		{"server", errors.New("503 service unavailable"), "server_error", true},
		{"network", errors.New("connection refused"), "network_error", true},
		{"unknown", errors.New("something odd"), "api_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("openai", tt.err)
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want GenerationError", err)
			}
			if genErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", genErr.Code, tt.wantCode)
			}
			if genErr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", genErr.Retryable, tt.retryable)
			}
		})
	}

	t.Run("context canceled passes through", func(t *testing.T) {
		err := classifyError("openai", context.Canceled)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		err := classifyError("openai", context.DeadlineExceeded)
		var genErr *GenerationError
		if !errors.As(err, &genErr) || genErr.Code != "timeout" {
			t.Errorf("err = %v, want timeout GenerationError", err)
		}
	})
}

func TestFactoryValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("mock needs no key", func(t *testing.T) {
		m, err := New(ctx, Config{Provider: "mock"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if m.Name() != "mock" {
			t.Errorf("Name = %q, want mock", m.Name())
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "llama-at-home"})
		if err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})

	t.Run("openai requires key", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "openai"})
		if err == nil {
			t.Fatal("expected error for missing API key")
		}
	})

	t.Run("anthropic requires key", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "anthropic"})
		if err == nil {
			t.Fatal("expected error for missing API key")
		}
	})
}

func TestGenerationErrorFormat(t *testing.T) {
	err := &GenerationError{Code: "api_error", Message: "boom", Provider: "openai"}
	if got := err.Error(); got != "openai: boom" {
		t.Errorf("Error() = %q, want 'openai: boom'", got)
	}
}
