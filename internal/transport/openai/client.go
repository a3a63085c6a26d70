// Package openai adapts OpenAI-compatible APIs (OpenAI, Nebius, vLLM) to the
// embedding and summarization contracts.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/retry"
)

// ClientConfig holds connection settings shared by the embedder and the summarizer.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
	// Retry is applied around every provider call. The zero value makes a single attempt.
	Retry retry.Policy
}

func newClient(cfg ClientConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// call runs fn under the limiter and the retry policy.
func call[T any](ctx context.Context, cfg ClientConfig, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, cfg.Retry, func(ctx context.Context) (T, error) {
		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				var zero T
				return zero, fmt.Errorf("rate limiter: %w", err)
			}
		}
		return fn(ctx)
	})
}

// IsRetryable reports whether a raw client error is transient:
// throttling, server-side failures and transport errors.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status := statusCode(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	return true
}

func statusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// parseAPIError extracts a human-readable error from the API response and wraps it
// with the given domain sentinel. Throttling additionally wraps domain.ErrRateLimited.
func parseAPIError(kind string, err error, wrap error) error {
	if statusCode(err) == http.StatusTooManyRequests {
		wrap = errors.Join(wrap, domain.ErrRateLimited)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w: %w", kind, err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
