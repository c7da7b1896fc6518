package profile

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/store"
)

// SQLStore keeps profile records in the profiles table.
//
// Writes go through this process only; change notification comes from the
// in-process hub, not from the database.
type SQLStore struct {
	db  *store.DB
	mu  sync.Mutex // Serialises writes with publication
	hub *hub
}

// NewSQLStore creates a profile store on db.
func NewSQLStore(db *store.DB) *SQLStore {
	return &SQLStore{db: db, hub: newHub()}
}

const upsertProfile = `INSERT INTO profiles (uid, name, phone, avatar_url, version)
VALUES ($1, $2, $3, $4, 1)
ON CONFLICT (uid) DO UPDATE SET
    name = excluded.name,
    phone = excluded.phone,
    avatar_url = excluded.avatar_url,
    version = profiles.version + 1`

func (s *SQLStore) read(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, uid string) (Snapshot, error) {
	snap := Snapshot{UID: uid}
	err := q.QueryRowContext(ctx,
		"SELECT name, phone, avatar_url, version FROM profiles WHERE uid = $1", uid,
	).Scan(&snap.Record.Name, &snap.Record.Phone, &snap.Record.AvatarURL, &snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{UID: uid}, nil
	}
	if err != nil {
		return Snapshot{}, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	snap.Exists = true
	return snap, nil
}

// Subscribe implements Store.
func (s *SQLStore) Subscribe(ctx context.Context, uid string, fn func(Snapshot)) (*Subscription, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.read(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	return s.hub.add(uid, snap, fn), nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, uid string) (Snapshot, error) {
	if err := checkUID(uid); err != nil {
		return Snapshot{}, err
	}
	return s.read(ctx, s.db, uid)
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, uid string, rec Record) (int64, error) {
	if err := checkUID(uid); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertProfile, uid, rec.Name, rec.Phone, rec.AvatarURL); err != nil {
		return 0, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	return s.commitAndPublish(ctx, tx, uid)
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, uid string, patch Patch) (int64, error) {
	if err := checkUID(uid); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	defer tx.Rollback()

	prev, err := s.read(ctx, tx, uid)
	if err != nil {
		return 0, err
	}
	next := patch.Apply(prev.Record)
	if _, err := tx.ExecContext(ctx, upsertProfile, uid, next.Name, next.Phone, next.AvatarURL); err != nil {
		return 0, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	return s.commitAndPublish(ctx, tx, uid)
}

// commitAndPublish reads back the written row, commits, and fans the
// snapshot out. Caller holds s.mu.
func (s *SQLStore) commitAndPublish(ctx context.Context, tx *sql.Tx, uid string) (int64, error) {
	snap, err := s.read(ctx, tx, uid)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, remote.Wrap(remote.ServiceProfile, CodeInternal, err)
	}
	s.hub.publish(snap)
	return snap.Version, nil
}
