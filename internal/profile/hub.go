package profile

import "sync"

// Subscription is a live registration on one profile record.
type Subscription struct {
	uid  string
	hub  *hub
	box  *mailbox
	once sync.Once
	done chan struct{}
}

// UID returns the subscribed account id.
func (s *Subscription) UID() string {
	return s.uid
}

// Close stops delivery. Safe to call more than once and from inside the
// callback. A callback already running completes.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.box.close()
	})
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) run(fn func(Snapshot)) {
	defer close(s.done)
	for {
		for {
			snap, ok := s.box.tryDequeue()
			if !ok {
				break
			}
			fn(snap)
		}
		if _, open := <-s.box.wait(); !open {
			return
		}
	}
}

// hub fans snapshots out to the subscriptions of each uid.
// Callers hold their store's write lock around add and publish.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*Subscription]struct{})}
}

// add registers a subscription, queues initial as its first snapshot and
// starts delivery.
func (h *hub) add(uid string, initial Snapshot, fn func(Snapshot)) *Subscription {
	s := &Subscription{
		uid:  uid,
		hub:  h,
		box:  newMailbox(),
		done: make(chan struct{}),
	}
	s.box.enqueue(initial)

	h.mu.Lock()
	set, ok := h.subs[uid]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[uid] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	go s.run(fn)
	return s
}

func (h *hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.uid]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.uid)
	}
}

func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[snap.UID] {
		s.box.enqueue(snap)
	}
}

// count returns the number of live subscriptions for uid.
func (h *hub) count(uid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[uid])
}
