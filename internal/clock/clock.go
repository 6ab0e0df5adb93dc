// Package clock provides the scheduling primitives the trainer session runs on:
// repeating ticks that can be cancelled and one-shot deferred callbacks.
package clock

import "time"

// Handle cancels a repeating timer. Stop is idempotent.
type Handle interface {
	Stop()
}

// Scheduler runs callbacks on the execution context that owns the session.
type Scheduler interface {
	// Every calls fn each interval until the returned handle is stopped.
	Every(interval time.Duration, fn func()) Handle
	// After calls fn once after delay. It cannot be cancelled.
	After(delay time.Duration, fn func())
	// Now reports the scheduler's current time.
	Now() time.Time
}
