package state

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/storefront/internal/catalog"
)

// Store is the session state container. The zero value is not usable; use New.
type Store struct {
	mu    sync.Mutex
	clock Clock

	loading       bool
	user          *User
	progress      float64
	notifications []Notification
	visible       bool
	items         []catalog.Item
	categories    []string
	cart          []CartEntry
	cartIndex     map[string]int // item id -> position in cart

	// dispatchMu is held from the end of a mutation until its listeners
	// return, so changes reach listeners in sequence order.
	dispatchMu   sync.Mutex
	listeners    map[int]func(Change)
	nextListener int
}

// New creates a Store seeded with a catalog and category list. The loading
// flag starts set and is cleared by ClearLoading.
func New(items []catalog.Item, categories []string) *Store {
	itemsCopy := make([]catalog.Item, len(items))
	copy(itemsCopy, items)
	catsCopy := make([]string, len(categories))
	copy(catsCopy, categories)

	return &Store{
		loading:    true,
		items:      itemsCopy,
		categories: catsCopy,
		cartIndex:  make(map[string]int),
		listeners:  make(map[int]func(Change)),
	}
}

// Listen registers fn to receive every applied mutation. The returned
// function unregisters it. fn must not call mutation primitives.
func (s *Store) Listen(fn func(Change)) (cancel func()) {
	s.dispatchMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.dispatchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.dispatchMu.Lock()
			delete(s.listeners, id)
			s.dispatchMu.Unlock()
		})
	}
}

// commit stamps c, hands the state lock over to the dispatch lock and
// delivers c to listeners. Must be called with s.mu held; returns with it
// released.
func (s *Store) commit(c Change) {
	c.Seq = s.clock.Next()
	c.Visible = s.visible
	s.dispatchMu.Lock()
	s.mu.Unlock()
	defer s.dispatchMu.Unlock()

	for _, fn := range s.listeners {
		fn(c)
	}
}

// ---- accessors ----

// Seq returns the sequence number of the last applied mutation.
func (s *Store) Seq() int64 {
	return s.clock.Current()
}

// User returns the signed-in user.
func (s *Store) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Notification returns the head of the notification queue.
func (s *Store) Notification() (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notifications) == 0 {
		return Notification{}, false
	}
	return s.notifications[0], true
}

// Notifications returns a copy of the whole queue, head first.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// NotificationVisible reports whether the head notification is shown.
func (s *Store) NotificationVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Progress returns the last committed upload progress, 0-100.
func (s *Store) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Loading reports whether the session is still loading.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Catalog returns a copy of the catalog.
func (s *Store) Catalog() []catalog.Item {
	out := make([]catalog.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the catalog item with the given id.
func (s *Store) Item(id string) (catalog.Item, bool) {
	return catalog.Find(s.items, id)
}

// Categories returns "All" followed by the sorted category labels.
func (s *Store) Categories() []string {
	return catalog.WithAll(s.categories)
}

// Cart returns a copy of the cart entries in insertion order.
func (s *Store) Cart() []CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CartEntry, len(s.cart))
	copy(out, s.cart)
	return out
}

// CartEntry returns the cart entry for an item id.
func (s *Store) CartEntry(id string) (CartEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.cartIndex[id]
	if !ok {
		return CartEntry{}, false
	}
	return s.cart[pos], true
}

// CartCount returns the total quantity across cart entries.
func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartCountLocked()
}

// CartTotal returns the sum of entry subtotals.
func (s *Store) CartTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartTotalLocked()
}

func (s *Store) cartCountLocked() int {
	n := 0
	for _, e := range s.cart {
		n += e.Quantity
	}
	return n
}

func (s *Store) cartTotalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.cart {
		total = total.Add(e.Subtotal())
	}
	return total
}

// Snapshot returns a consistent copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Seq:                  s.clock.Current(),
		Loading:              s.loading,
		Progress:             s.progress,
		NotificationVisible:  s.visible,
		PendingNotifications: len(s.notifications),
		Cart:                 make([]CartEntry, len(s.cart)),
		CartCount:            s.cartCountLocked(),
		CartTotal:            s.cartTotalLocked(),
		Catalog:              s.Catalog(),
		Categories:           s.Categories(),
	}
	copy(snap.Cart, s.cart)
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if len(s.notifications) > 0 {
		n := s.notifications[0]
		snap.Notification = &n
	}
	return snap
}
