package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// classifyError converts a provider SDK error into a GenerationError.
//
// Classification is string-based because the SDKs don't share a common
// error taxonomy. Context errors pass through untouched so callers can
// use errors.Is against context.Canceled.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
			Provider:  provider,
		}
	}

	lowerErr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lowerErr, "rate limit") ||
		strings.Contains(lowerErr, "429") ||
		strings.Contains(lowerErr, "too many requests"):
		return &GenerationError{
			Code:      "rate_limited",
			Message:   "rate limit exceeded",
			Retryable: true,
			Provider:  provider,
		}

	case strings.Contains(lowerErr, "api key") ||
		strings.Contains(lowerErr, "401") ||
		strings.Contains(lowerErr, "403") ||
		strings.Contains(lowerErr, "unauthorized") ||
		strings.Contains(lowerErr, "authentication"):
		return &GenerationError{
			Code:      "invalid_api_key",
			Message:   "API key is invalid or expired",
			Retryable: false,
			Provider:  provider,
		}

	case strings.Contains(lowerErr, "quota") ||
		strings.Contains(lowerErr, "billing"):
		return &GenerationError{
			Code:      "quota_exceeded",
			Message:   "API quota exceeded",
			Retryable: false,
			Provider:  provider,
		}

	case strings.Contains(lowerErr, "500") ||
		strings.Contains(lowerErr, "502") ||
		strings.Contains(lowerErr, "503") ||
		strings.Contains(lowerErr, "504") ||
		strings.Contains(lowerErr, "internal server error") ||
		strings.Contains(lowerErr, "service unavailable"):
		return &GenerationError{
			Code:      "server_error",
			Message:   fmt.Sprintf("server error: %v", err),
			Retryable: true,
			Provider:  provider,
		}

	case strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "network"):
		return &GenerationError{
			Code:      "network_error",
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
			Provider:  provider,
		}

	default:
		return &GenerationError{
			Code:      "api_error",
			Message:   fmt.Sprintf("API error: %v", err),
			Retryable: false,
			Provider:  provider,
		}
	}
}
