package orchestrator

import (
	"math/rand"
	"time"
)

// RetryConfig defines backoff behavior for throttled launch attempts.
// The workflow-run service signals throttling explicitly; only those errors
// are retried, everything else is fatal for the job.
type RetryConfig struct {
	// MaxAttempts is the number of launch attempts per job (default: 5)
	MaxAttempts int

	// BaseDelay is the backoff base; attempt n waits BaseDelay * 2^(n-1)
	BaseDelay time.Duration

	// Jitter is the maximum random delay added to each backoff to spread
	// retries from concurrent runs apart
	Jitter time.Duration
}

// Default retry constants for workflow-run service throttling.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultJitter      = 1 * time.Second
)

// NewDefaultRetryConfig returns a RetryConfig with sensible defaults for the
// service's start-run quota.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      DefaultJitter,
	}
}

// Backoff computes the wait before the next attempt, given the 1-based
// attempt number that just failed: BaseDelay * 2^(attempt-1) plus jitter.
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	backoff := c.BaseDelay
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}

	if c.Jitter > 0 {
		backoff += time.Duration(rand.Int63n(int64(c.Jitter)))
	}

	return backoff
}
