package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/state"
)

// DefaultGap is the pause between dismissing one notification and showing
// the next.
const DefaultGap = 500 * time.Millisecond

// Phase is the display state of the queue.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseDisplaying
	PhaseHiding
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseDisplaying:
		return "displaying"
	case PhaseHiding:
		return "hiding"
	default:
		return "unknown"
	}
}

// Option configures a Queue.
type Option func(*Queue)

// WithGap sets the pause after a dismissal. Non-positive values are ignored.
func WithGap(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.gap = d
		}
	}
}

// WithScheduler sets the scheduler used for the gap timer.
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) {
		if s != nil {
			q.sched = s
		}
	}
}

// WithMetrics records enqueued notifications.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

// Queue sequences notifications for display.
//
// Thread-safety: all methods are safe for concurrent use. Enqueue never
// blocks on display timing.
type Queue struct {
	mu      sync.Mutex
	store   *state.Store
	sched   Scheduler
	gap     time.Duration
	metrics *metrics.Metrics
	phase   Phase
	stop    func() bool // cancels the pending gap timer
	closed  bool
}

// NewQueue creates a queue over the store's notification fields.
func NewQueue(store *state.Store, opts ...Option) *Queue {
	q := &Queue{
		store: store,
		sched: RealScheduler,
		gap:   DefaultGap,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends n. An empty queue starts displaying immediately; otherwise
// n waits behind the existing notifications. Returns false once the queue
// is closed.
func (q *Queue) Enqueue(n state.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	show := q.phase == PhaseEmpty
	q.store.PushNotification(n, show)
	if show {
		q.phase = PhaseDisplaying
	}
	q.metrics.Notification(string(n.Kind))
	slog.Debug("notification enqueued", "kind", n.Kind, "message", n.Message, "phase", q.phase)
	return true
}

// Success enqueues a success notification.
func (q *Queue) Success(message string) bool {
	return q.Enqueue(state.Notification{Kind: state.KindSuccess, Message: message})
}

// Error enqueues an error notification.
func (q *Queue) Error(message string) bool {
	return q.Enqueue(state.Notification{Kind: state.KindError, Message: message})
}

// Dismiss removes the displayed notification and starts the gap. It returns
// false when nothing is displayed (queue empty, or already hiding).
func (q *Queue) Dismiss() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.phase != PhaseDisplaying {
		return false
	}

	q.store.ShiftNotification()
	q.phase = PhaseHiding
	q.stop = q.sched.AfterFunc(q.gap, q.reveal)
	return true
}

// reveal ends the gap: the new head is shown, or the queue goes empty.
func (q *Queue) reveal() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.phase != PhaseHiding {
		return
	}
	q.stop = nil

	if q.store.ShowNotification() {
		q.phase = PhaseDisplaying
		return
	}
	q.phase = PhaseEmpty
}

// Phase returns the current display phase.
func (q *Queue) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase
}

// Close cancels a pending gap timer. Further Enqueue and Dismiss calls are
// ignored. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	if q.stop != nil {
		q.stop()
		q.stop = nil
	}
}
