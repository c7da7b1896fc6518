package profile

import "sync"

// mailbox is a thread-safe FIFO of snapshots for one subscription.
//
// Writers enqueue under the store's write lock, so the order in the mailbox
// is the write order. The subscription goroutine drains it.
//
// The mailbox is unbounded so a slow subscriber never blocks a writer.
type mailbox struct {
	mu     sync.Mutex
	items  []Snapshot
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

func newMailbox() *mailbox {
	return &mailbox{
		items:  make([]Snapshot, 0, 4),
		signal: make(chan struct{}, 1),
	}
}

// enqueue appends s. Returns false if the mailbox is closed.
func (m *mailbox) enqueue(s Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.items = append(m.items, s)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front snapshot without blocking.
// A closed mailbox yields nothing, even if items were pending.
func (m *mailbox) tryDequeue() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.items) == 0 {
		return Snapshot{}, false
	}
	s := m.items[0]
	if len(m.items) == 1 {
		m.items = m.items[:0]
	} else {
		m.items = m.items[1:]
	}
	return s, true
}

// wait returns the signal channel. It is closed by close.
func (m *mailbox) wait() <-chan struct{} {
	return m.signal
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.items = nil
	close(m.signal)
}
