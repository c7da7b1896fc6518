package notify

import "time"

// Scheduler runs a function after a delay. Tests substitute a manual
// implementation to control time.
type Scheduler interface {
	// AfterFunc calls f in its own goroutine after d has elapsed and returns
	// a function that cancels the call. stop reports whether it prevented f
	// from running.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealScheduler schedules on wall-clock time.
var RealScheduler Scheduler = realScheduler{}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
