package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a deterministic scheduler for tests. Nothing fires
// until Advance moves its virtual clock past a timer's deadline.
//
// It satisfies notify.Scheduler. Callbacks run synchronously on the
// goroutine calling Advance, in deadline order (ties in scheduling order).
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers []*manualTimer
}

type manualTimer struct {
	id      int
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler whose virtual clock starts at 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc registers f to run once the virtual clock reaches now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{id: s.nextID, at: s.now + d, f: f}
	s.nextID++
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves the virtual clock forward by d, firing every timer that
// falls due, including timers scheduled by callbacks during the advance.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		t := s.nextDueLocked(target)
		if t == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = t.at
		t.fired = true
		s.mu.Unlock()

		t.f()
	}
}

// Now returns the virtual time elapsed since creation.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDueLocked(target time.Duration) *manualTimer {
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped && t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].id < due[j].id
	})
	return due[0]
}
