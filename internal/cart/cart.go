// Package cart enforces the cart rules on top of the state store's cart
// primitives: unique entries, quantities >= 1, removal at zero.
//
// Operations on ids that are not in the catalog or not in the cart leave
// the cart untouched and return ErrUnknownItem or ErrNotInCart; they never
// emit notifications.
package cart

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/state"
)

var (
	// ErrUnknownItem is returned by Add for ids absent from the catalog.
	ErrUnknownItem = errors.New("cart: unknown item")

	// ErrNotInCart is returned for ids with no cart entry.
	ErrNotInCart = errors.New("cart: item not in cart")
)

// Messages emitted on successful add and remove.
const (
	MsgAdded   = "Item adicionado ao carrinho!"
	MsgRemoved = "Item removido do carrinho!"
)

// Notifier receives the success messages of Add and Remove.
type Notifier interface {
	Success(message string) bool
}

// Manager applies cart operations.
type Manager struct {
	store    *state.Store
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewManager creates a cart manager. notifier may be nil; m may be nil.
func NewManager(store *state.Store, notifier Notifier, m *metrics.Metrics) *Manager {
	return &Manager{store: store, notifier: notifier, metrics: m}
}

// Add puts the catalog item id in the cart with quantity 1. Adding an item
// that is already in the cart leaves the cart unchanged but still notifies.
func (m *Manager) Add(id string) error {
	if _, ok := m.store.Item(id); !ok {
		m.metrics.CartOp("add", metrics.OutcomeFailed)
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}

	if m.store.CartAdd(id) {
		m.metrics.CartOp("add", metrics.OutcomeOK)
	} else {
		m.metrics.CartOp("add", metrics.OutcomeNoop)
	}
	slog.Debug("cart add", "item", id)
	m.notify(MsgAdded)
	return nil
}

// Remove deletes the entry for id.
func (m *Manager) Remove(id string) error {
	if !m.store.CartRemove(id) {
		m.metrics.CartOp("remove", metrics.OutcomeFailed)
		return fmt.Errorf("%w: %q", ErrNotInCart, id)
	}
	m.metrics.CartOp("remove", metrics.OutcomeOK)
	slog.Debug("cart remove", "item", id)
	m.notify(MsgRemoved)
	return nil
}

// Increment adds one to the entry's quantity and returns the new quantity.
func (m *Manager) Increment(id string) (int, error) {
	q, ok := m.store.CartIncrement(id)
	if !ok {
		m.metrics.CartOp("increment", metrics.OutcomeFailed)
		return 0, fmt.Errorf("%w: %q", ErrNotInCart, id)
	}
	m.metrics.CartOp("increment", metrics.OutcomeOK)
	return q, nil
}

// Decrement subtracts one from the entry's quantity and returns the new
// quantity. At 0 the entry has been removed.
func (m *Manager) Decrement(id string) (int, error) {
	q, ok := m.store.CartDecrement(id)
	if !ok {
		m.metrics.CartOp("decrement", metrics.OutcomeFailed)
		return 0, fmt.Errorf("%w: %q", ErrNotInCart, id)
	}
	m.metrics.CartOp("decrement", metrics.OutcomeOK)
	return q, nil
}

// Clear empties the cart.
func (m *Manager) Clear() {
	m.store.CartClear()
	m.metrics.CartOp("clear", metrics.OutcomeOK)
}

// Entries returns the cart contents.
func (m *Manager) Entries() []state.CartEntry {
	return m.store.Cart()
}

func (m *Manager) notify(msg string) {
	if m.notifier != nil {
		m.notifier.Success(msg)
	}
}
