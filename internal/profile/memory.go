package profile

import (
	"context"
	"sync"
)

// Op names a Store method, for failure injection.
type Op string

const (
	OpSubscribe Op = "subscribe"
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpUpdate    Op = "update"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Snapshot
	hub      *hub
	failures map[Op][]error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Snapshot),
		hub:      newHub(),
		failures: make(map[Op][]error),
	}
}

// FailNext makes the next call of op return err. Calls queue up.
func (m *MemoryStore) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

func (m *MemoryStore) popFailureLocked(op Op) error {
	q := m.failures[op]
	if len(q) == 0 {
		return nil
	}
	m.failures[op] = q[1:]
	return q[0]
}

func (m *MemoryStore) snapshotLocked(uid string) Snapshot {
	if snap, ok := m.records[uid]; ok {
		return snap
	}
	return Snapshot{UID: uid}
}

// Subscribe implements Store.
func (m *MemoryStore) Subscribe(ctx context.Context, uid string, fn func(Snapshot)) (*Subscription, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFailureLocked(OpSubscribe); err != nil {
		return nil, err
	}
	return m.hub.add(uid, m.snapshotLocked(uid), fn), nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, uid string) (Snapshot, error) {
	if err := checkUID(uid); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFailureLocked(OpGet); err != nil {
		return Snapshot{}, err
	}
	return m.snapshotLocked(uid), nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, uid string, rec Record) (int64, error) {
	if err := checkUID(uid); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFailureLocked(OpSet); err != nil {
		return 0, err
	}
	prev := m.snapshotLocked(uid)
	return m.writeLocked(Snapshot{UID: uid, Record: rec, Exists: true, Version: prev.Version + 1}), nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, uid string, patch Patch) (int64, error) {
	if err := checkUID(uid); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popFailureLocked(OpUpdate); err != nil {
		return 0, err
	}
	prev := m.snapshotLocked(uid)
	return m.writeLocked(Snapshot{UID: uid, Record: patch.Apply(prev.Record), Exists: true, Version: prev.Version + 1}), nil
}

func (m *MemoryStore) writeLocked(snap Snapshot) int64 {
	m.records[snap.UID] = snap
	m.hub.publish(snap)
	return snap.Version
}

// Subscribers returns the number of live subscriptions for uid.
func (m *MemoryStore) Subscribers(uid string) int {
	return m.hub.count(uid)
}
