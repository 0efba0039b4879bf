package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// RetryConfig configures retry behavior for language model calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// AttemptTimeout bounds each individual model call. A hung call maps
	// to context.DeadlineExceeded, which retryableError treats as
	// transient, so the next attempt still happens.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns defaults tuned for LLM API latency.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  60 * time.Second,
	}
}

// retryablePatterns groups transient error substrings by category,
// matched case-insensitively against err.Error(). String matching is
// unavoidable here: Genkit and the provider SDKs do not expose typed
// errors for transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(msg, sub) {
				return true
			}
		}
	}
	return false
}

// generateWithRetry invokes the model with exponential backoff on
// transient failures. Each attempt waits on the rate limiter, so retries
// cannot amplify pressure on an already-throttled API.
func (o *Orchestrator) generateWithRetry(ctx context.Context, messages []*ai.Message) (string, error) {
	var lastErr error
	delay := o.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= o.retry.MaxRetries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.retry.AttemptTimeout)
		answer, err := o.generate(attemptCtx, messages)
		cancel()
		if err == nil {
			o.logger.Debug("model call succeeded", "attempts", attempt+1, "elapsed", time.Since(start))
			return answer, nil
		}

		lastErr = err
		if !retryableError(err) {
			return "", err
		}
		if attempt == o.retry.MaxRetries {
			break
		}

		o.logger.Debug("retrying model call", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, o.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("model call after %d retries (elapsed %v): %w",
		o.retry.MaxRetries, time.Since(start), lastErr)
}
