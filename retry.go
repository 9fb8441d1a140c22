package sentry_sender

import (
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// RetryPolicy computes the delay between store request attempts
type RetryPolicy struct {
	config *RetryConfig
	logger *zap.Logger
}

// NewRetryPolicy creates a new retry policy
func NewRetryPolicy(config *RetryConfig, logger *zap.Logger) *RetryPolicy {
	return &RetryPolicy{
		config: config,
		logger: logger,
	}
}

// CalculateBackoff calculates the backoff duration before the given retry attempt
func (rp *RetryPolicy) CalculateBackoff(attempts int) time.Duration {
	if attempts <= 0 {
		return rp.config.InitialBackoff
	}

	// Exponential backoff with jitter
	backoff := float64(rp.config.InitialBackoff) * math.Pow(rp.config.BackoffMultiplier, float64(attempts-1))

	// +-25% random variation
	jitter := backoff * 0.25 * (2*rand.Float64() - 1)
	backoff += jitter

	duration := time.Duration(backoff)

	if duration > rp.config.MaxBackoff {
		duration = rp.config.MaxBackoff
	}

	return duration
}

// Backoff adapts the policy to retryablehttp
func (rp *RetryPolicy) Backoff() retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		backoff := rp.CalculateBackoff(attemptNum + 1)

		rp.logger.Debug("Scheduling store request retry",
			zap.Int("attempt", attemptNum+1),
			zap.Duration("backoff", backoff))

		return backoff
	}
}
