package state

// Mutation primitives. Each one takes s.mu, applies its change and, when
// state actually changed, hands off to commit, which releases s.mu.

// SetUser replaces the signed-in user. nil clears it.
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	var c Change
	c.Op = OpUserSet
	if u == nil {
		s.user = nil
	} else {
		cp := *u
		s.user = &cp
		out := cp
		c.User = &out
	}
	s.commit(c)
}

// PushNotification appends n to the queue. With show, the visibility flag
// is raised.
func (s *Store) PushNotification(n Notification, show bool) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	if show {
		s.visible = true
	}
	s.commit(Change{Op: OpNotificationPush, Notification: &n})
}

// ShiftNotification removes the head of the queue and lowers the visibility
// flag. Returns false when the queue is empty.
func (s *Store) ShiftNotification() (Notification, bool) {
	s.mu.Lock()
	if len(s.notifications) == 0 {
		s.mu.Unlock()
		return Notification{}, false
	}
	head := s.notifications[0]
	s.notifications[0] = Notification{}
	s.notifications = s.notifications[1:]
	if len(s.notifications) == 0 {
		s.notifications = nil
	}
	s.visible = false
	s.commit(Change{Op: OpNotificationShift, Notification: &head})
	return head, true
}

// ShowNotification raises the visibility flag. Returns false when there is
// nothing to show.
func (s *Store) ShowNotification() bool {
	s.mu.Lock()
	if len(s.notifications) == 0 {
		s.mu.Unlock()
		return false
	}
	if s.visible {
		s.mu.Unlock()
		return true
	}
	s.visible = true
	head := s.notifications[0]
	s.commit(Change{Op: OpNotificationShow, Notification: &head})
	return true
}

// SetProgress records upload progress, clamped to 0-100.
func (s *Store) SetProgress(p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	s.mu.Lock()
	s.progress = p
	s.commit(Change{Op: OpUploadProgress, Progress: p})
}

// ClearLoading lowers the loading flag.
func (s *Store) ClearLoading() {
	s.mu.Lock()
	if !s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.commit(Change{Op: OpLoadingClear})
}

// CartAdd adds the catalog item id with quantity 1. Returns false, leaving
// the cart unchanged, when id is not in the catalog or already in the cart.
func (s *Store) CartAdd(id string) bool {
	item, ok := s.Item(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if _, exists := s.cartIndex[id]; exists {
		s.mu.Unlock()
		return false
	}
	s.cart = append(s.cart, CartEntry{
		ItemID:      item.ID,
		Name:        item.Name,
		ImageURL:    item.ImageURL,
		Description: item.Description,
		Price:       item.Price,
		Quantity:    1,
	})
	s.cartIndex[id] = len(s.cart) - 1
	s.commit(Change{Op: OpCartAdd, ItemID: id, Quantity: 1})
	return true
}

// CartRemove deletes the entry for id. Returns false when there is none.
func (s *Store) CartRemove(id string) bool {
	s.mu.Lock()
	pos, ok := s.cartIndex[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.removeAtLocked(pos)
	s.commit(Change{Op: OpCartRemove, ItemID: id})
	return true
}

// CartIncrement adds one to the entry's quantity and returns the new value.
func (s *Store) CartIncrement(id string) (int, bool) {
	s.mu.Lock()
	pos, ok := s.cartIndex[id]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	s.cart[pos].Quantity++
	q := s.cart[pos].Quantity
	s.commit(Change{Op: OpCartIncrement, ItemID: id, Quantity: q})
	return q, true
}

// CartDecrement subtracts one from the entry's quantity. An entry that
// reaches zero is removed in the same mutation and 0 is returned.
func (s *Store) CartDecrement(id string) (int, bool) {
	s.mu.Lock()
	pos, ok := s.cartIndex[id]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	q := s.cart[pos].Quantity - 1
	if q <= 0 {
		q = 0
		s.removeAtLocked(pos)
	} else {
		s.cart[pos].Quantity = q
	}
	s.commit(Change{Op: OpCartDecrement, ItemID: id, Quantity: q})
	return q, true
}

// CartClear empties the cart. Clearing an empty cart publishes nothing.
func (s *Store) CartClear() {
	s.mu.Lock()
	if len(s.cart) == 0 {
		s.mu.Unlock()
		return
	}
	s.cart = nil
	s.cartIndex = make(map[string]int)
	s.commit(Change{Op: OpCartClear})
}

// removeAtLocked deletes the cart entry at pos and reindexes the entries
// after it.
func (s *Store) removeAtLocked(pos int) {
	delete(s.cartIndex, s.cart[pos].ItemID)
	s.cart = append(s.cart[:pos], s.cart[pos+1:]...)
	for i := pos; i < len(s.cart); i++ {
		s.cartIndex[s.cart[i].ItemID] = i
	}
}
