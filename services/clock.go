package services

import "time"

// Timer is a one-shot timer handle.
type Timer interface {
	// Stop reports whether the call prevented the timer from firing.
	Stop() bool
}

// Clock provides wall time and one-shot timers; tests substitute a virtual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
