package algorithms

import "time"

// BackoffType selects the idle-poll backoff algorithm a worker loop uses.
type BackoffType int

const (
	// BackoffExponential uses simple exponential backoff (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered adds random jitter to prevent synchronized wakeups.
	BackoffJittered
	// BackoffDecorrelated uses AWS-style decorrelated jitter.
	BackoffDecorrelated
)

// NewBackoff builds a Backoff strategy for a worker's idle poll loop.
func NewBackoff(
	backoffType BackoffType,
	initialDelay, maxDelay time.Duration,
	jitterFactor float64,
) Backoff {
	switch backoffType {
	case BackoffJittered:
		return newJitteredBackoff(initialDelay, maxDelay, jitterFactor)

	case BackoffDecorrelated:
		return newDecorrelatedJitterBackoff(initialDelay, maxDelay)

	default:
		return newExponentialBackoff(initialDelay, maxDelay)
	}
}
