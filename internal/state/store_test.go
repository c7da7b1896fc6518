package state

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/catalog"
)

func newTestStore() *Store {
	return New(catalog.DefaultItems(), catalog.DefaultCategories())
}

// recorder collects published changes.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) listen(s *Store) func() {
	return s.Listen(func(c Change) {
		r.mu.Lock()
		r.changes = append(r.changes, c)
		r.mu.Unlock()
	})
}

func (r *recorder) ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Op
	}
	return out
}

func TestNew_InitialState(t *testing.T) {
	s := newTestStore()

	assert.True(t, s.Loading())
	_, ok := s.User()
	assert.False(t, ok)
	assert.Zero(t, s.Progress())
	_, ok = s.Notification()
	assert.False(t, ok)
	assert.False(t, s.NotificationVisible())
	assert.Empty(t, s.Cart())
	assert.Len(t, s.Catalog(), 3)
	assert.Equal(t, "All", s.Categories()[0])
	assert.Equal(t, int64(0), s.Seq())
}

func TestCart_Scenario(t *testing.T) {
	s := newTestStore()

	require.True(t, s.CartAdd("2"))
	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, "2", cart[0].ItemID)
	assert.Equal(t, 1, cart[0].Quantity)

	q, ok := s.CartIncrement("2")
	require.True(t, ok)
	assert.Equal(t, 2, q)

	q, ok = s.CartDecrement("2")
	require.True(t, ok)
	assert.Equal(t, 1, q)

	q, ok = s.CartDecrement("2")
	require.True(t, ok)
	assert.Equal(t, 0, q)
	assert.Empty(t, s.Cart())
}

func TestCartAdd_Idempotent(t *testing.T) {
	s := newTestStore()

	for _, id := range []string{"1", "2", "3"} {
		require.True(t, s.CartAdd(id))
	}
	s.CartIncrement("1")

	for _, id := range []string{"1", "2", "3"} {
		before := s.Cart()
		assert.False(t, s.CartAdd(id))
		assert.Equal(t, before, s.Cart(), "re-adding %s must not change the cart", id)
	}
	assert.Len(t, s.Cart(), 3)
}

func TestCartAdd_UnknownItem(t *testing.T) {
	s := newTestStore()
	var rec recorder
	rec.listen(s)

	assert.False(t, s.CartAdd("404"))
	assert.Empty(t, s.Cart())
	assert.Empty(t, rec.ops(), "no-op must not publish")
	assert.Equal(t, int64(0), s.Seq())
}

func TestCart_CountNeverExceedsCatalog(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 3; i++ {
		for _, it := range s.Catalog() {
			s.CartAdd(it.ID)
		}
	}
	assert.LessOrEqual(t, len(s.Cart()), len(s.Catalog()))
}

func TestCartRemove(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1")
	s.CartAdd("2")
	s.CartAdd("3")

	assert.True(t, s.CartRemove("2"))
	cart := s.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, "1", cart[0].ItemID)
	assert.Equal(t, "3", cart[1].ItemID)

	// Index stays consistent after removal from the middle.
	q, ok := s.CartIncrement("3")
	require.True(t, ok)
	assert.Equal(t, 2, q)
	e, ok := s.CartEntry("3")
	require.True(t, ok)
	assert.Equal(t, 2, e.Quantity)
}

func TestCartRemove_MissingIsNoop(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1")
	s.CartAdd("3")

	assert.False(t, s.CartRemove("2"))
	assert.Len(t, s.Cart(), 2, "a missing id must never remove another entry")
}

func TestCartIncrementDecrement_Missing(t *testing.T) {
	s := newTestStore()

	_, ok := s.CartIncrement("1")
	assert.False(t, ok)
	_, ok = s.CartDecrement("1")
	assert.False(t, ok)
}

func TestCartDecrement_NeverZeroQuantity(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1")
	s.CartIncrement("1")
	s.CartIncrement("1")

	s.Listen(func(c Change) {
		for _, e := range s.Cart() {
			assert.GreaterOrEqual(t, e.Quantity, 1)
		}
	})

	for i := 0; i < 3; i++ {
		s.CartDecrement("1")
	}
	assert.Empty(t, s.Cart())
}

func TestCartClear(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1")
	s.CartAdd("2")

	s.CartClear()
	assert.Empty(t, s.Cart())
	assert.Len(t, s.Catalog(), 3, "clearing the cart leaves the catalog alone")

	assert.True(t, s.CartAdd("1"), "cleared items can be added again")
}

func TestCart_DoesNotAliasCatalog(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1")
	s.CartIncrement("1")

	cart := s.Cart()
	cart[0].Quantity = 99
	cart[0].Name = "mutated"

	e, _ := s.CartEntry("1")
	assert.Equal(t, 2, e.Quantity)
	it, _ := s.Item("1")
	assert.Equal(t, "Headset Razer Kraken", it.Name)
}

func TestCartTotals(t *testing.T) {
	s := newTestStore()
	s.CartAdd("1") // 199.99
	s.CartAdd("3") // 49.99
	s.CartIncrement("3")

	assert.Equal(t, 3, s.CartCount())
	assert.True(t, decimal.RequireFromString("299.97").Equal(s.CartTotal()), s.CartTotal().String())
}

func TestNotifications_PushShiftShow(t *testing.T) {
	s := newTestStore()

	s.PushNotification(Notification{Kind: KindSuccess, Message: "a"}, true)
	s.PushNotification(Notification{Kind: KindError, Message: "b"}, false)
	assert.True(t, s.NotificationVisible())

	head, ok := s.Notification()
	require.True(t, ok)
	assert.Equal(t, "a", head.Message)

	got, ok := s.ShiftNotification()
	require.True(t, ok)
	assert.Equal(t, "a", got.Message)
	assert.False(t, s.NotificationVisible())

	assert.True(t, s.ShowNotification())
	assert.True(t, s.NotificationVisible())
	head, _ = s.Notification()
	assert.Equal(t, "b", head.Message)

	s.ShiftNotification()
	_, ok = s.ShiftNotification()
	assert.False(t, ok)
	assert.False(t, s.ShowNotification(), "nothing to show")
}

func TestPushNotification_Hidden(t *testing.T) {
	s := newTestStore()
	s.PushNotification(Notification{Kind: KindSuccess, Message: "a"}, false)
	assert.False(t, s.NotificationVisible())
	assert.Len(t, s.Notifications(), 1)
}

func TestSetProgress_Clamps(t *testing.T) {
	s := newTestStore()

	s.SetProgress(42.5)
	assert.Equal(t, 42.5, s.Progress())
	s.SetProgress(-3)
	assert.Equal(t, 0.0, s.Progress())
	s.SetProgress(140)
	assert.Equal(t, 100.0, s.Progress())
}

func TestSetUser(t *testing.T) {
	s := newTestStore()

	u := &User{UID: "u1", Email: "a@b.c", Name: "Ana"}
	s.SetUser(u)
	u.Name = "mutated"

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "Ana", got.Name)

	s.SetUser(nil)
	_, ok = s.User()
	assert.False(t, ok)
}

func TestClearLoading(t *testing.T) {
	s := newTestStore()
	s.ClearLoading()
	assert.False(t, s.Loading())
}

func TestListen_SequenceAndCancel(t *testing.T) {
	s := newTestStore()
	var rec recorder
	cancel := rec.listen(s)

	s.CartAdd("1")
	s.PushNotification(Notification{Kind: KindSuccess, Message: "x"}, true)
	s.SetProgress(10)
	cancel()
	cancel() // idempotent
	s.ClearLoading()

	assert.Equal(t, []Op{OpCartAdd, OpNotificationPush, OpUploadProgress}, rec.ops())
	for i, c := range rec.changes {
		assert.Equal(t, int64(i+1), c.Seq)
	}
	assert.True(t, rec.changes[1].Visible)
	assert.Equal(t, int64(4), s.Seq())
}

func TestListen_ConcurrentMutationsDeliveredInOrder(t *testing.T) {
	s := newTestStore()

	var mu sync.Mutex
	var seqs []int64
	s.Listen(func(c Change) {
		mu.Lock()
		seqs = append(seqs, c.Seq)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.SetProgress(float64(j))
			}
		}()
	}
	wg.Wait()

	require.Len(t, seqs, 400)
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i])
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestStore()
	s.CartAdd("2")
	s.SetUser(&User{UID: "u1", Name: "Ana"})
	s.PushNotification(Notification{Kind: KindSuccess, Message: "hi"}, true)

	snap := s.Snapshot()
	assert.Equal(t, s.Seq(), snap.Seq)
	assert.True(t, snap.Loading)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Ana", snap.User.Name)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "hi", snap.Notification.Message)
	assert.True(t, snap.NotificationVisible)
	assert.Equal(t, 1, snap.PendingNotifications)
	assert.Len(t, snap.Cart, 1)
	assert.Equal(t, 1, snap.CartCount)
	assert.True(t, decimal.RequireFromString("99.99").Equal(snap.CartTotal))
	assert.Equal(t, s.Catalog(), snap.Catalog)
	assert.Equal(t, s.Categories(), snap.Categories)
	require.NotEmpty(t, snap.Categories)
	assert.Equal(t, "All", snap.Categories[0])

	snap.Catalog[0].Name = "changed"
	assert.NotEqual(t, "changed", s.Catalog()[0].Name, "snapshot catalog is a copy")
}
