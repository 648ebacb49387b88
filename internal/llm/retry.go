package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	// Exponential backoff: initialBackoff * 2^attempt
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))

	if config.MaxBackoff > 0 && backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}

// retryWithBackoff calls fn up to attempts times. Every error is retried; the
// wait before attempt n+1 is calculateBackoff(n). There is no wait after the
// final attempt.
func retryWithBackoff(
	ctx context.Context,
	config RetryConfig,
	attempts int,
	logger *observability.Logger,
	fn func(ctx context.Context) (string, error),
) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", domain.ProviderError("request cancelled", err)
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, config)
		logger.Warn().
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Request failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", domain.ProviderError("request cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	return "", domain.ProviderError(fmt.Sprintf("request failed after %d attempts", attempts), lastErr)
}
