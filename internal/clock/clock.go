// Package clock abstracts the time functions the trigger pipeline depends
// on so that debounce behaviour can be tested without sleeping.
package clock

import "time"

// Clock provides the current time and deferred execution.
type Clock interface {
	// Now returns the current time according to this clock.
	Now() time.Time
	// AfterFunc calls f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a deferred call scheduled with AfterFunc.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call
	// has already fired or been stopped.
	Stop() bool
}

// Real implements Clock using the actual system time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
