package state

import "sync/atomic"

// Clock is the monotonic logical clock that stamps applied mutations.
//
// Next is called with the store mutex held, but Current may be read from
// any goroutine.
type Clock struct {
	seq atomic.Int64
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out, or 0.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
