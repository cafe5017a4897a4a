// Package algorithms holds the idle-wait backoff strategies used by the
// central schedulers' (blocking-queue and SPSC) worker poll loops. The
// Fenwick core issues no retries — workers never retry a
// failed operation — so unlike the worker pool this backoff governs is not
// "how long to wait before retrying a task" but "how long to wait before
// polling an empty queue again". Same shape of problem, same algorithms.
package algorithms

import "time"

// Backoff calculates how long a worker should idle after finding no work.
type Backoff interface {
	// NextDelay returns how long to sleep after the missCount-th consecutive
	// empty poll (0-indexed: 0 is the first miss).
	NextDelay(missCount int) time.Duration

	// Reset clears any state accumulated between busy periods.
	Reset()
}
