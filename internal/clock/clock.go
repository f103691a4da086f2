// Package clock provides the monotonic time source and the cancellable
// one-shot timer facility used by every time-bounded transition in the
// system: confirmation deadlines, question timers, post-match cleanup and
// the registry/lobby idle sweepers (spec §2.2, §5 "Cancellation & timeouts").
//
// Production code takes time from the real wall clock via time.AfterFunc,
// mirroring the teacher's delayed-cleanup pattern in
// gameserver.OnDisconnection (time.AfterFunc(CombatTime, ...)). Tests use a
// fake clock so deadline logic can be exercised without sleeping.
package clock

import "time"

// Timer is an opaque, cancellable handle to a scheduled one-shot callback.
// Cancelling is idempotent: calling Stop twice, or after the timer already
// fired, is always safe and has no further effect.
type Timer interface {
	Stop() bool
}

// Clock is the time source and timer factory every scheduler in the core
// depends on, instead of calling time.Now/time.AfterFunc directly. This is
// the seam that lets matchmaking confirmation deadlines, question timeouts
// and sweepers be unit-tested deterministically.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f to run once after d elapses and returns a Timer
	// that can cancel it. f runs on its own goroutine, same as time.AfterFunc.
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the production Clock backed by the operating system's monotonic
// clock.
type Real struct{}

// NewReal returns the production Clock.
func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
