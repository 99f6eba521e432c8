package scheduler

import "time"

// Scheduler runs functions on the graph's single logical thread.
//
// Implementations must never run two scheduled functions concurrently, and
// must never run a scheduled function synchronously from within Asap or After.
type Scheduler interface {
	// Asap queues f to run after the currently running task returns.
	Asap(f func())

	// After queues f to run once d has elapsed. A non-positive d behaves
	// like Asap.
	After(d time.Duration, f func())

	// Now returns the scheduler's notion of the current time. Delay
	// deadlines are computed from it.
	Now() time.Time
}
