package auth

import (
	"context"
	"sync"

	"github.com/roach88/storefront/internal/profile"
)

// binding is the session's live subscription to one profile record. It
// tracks the highest version the subscription has committed to the store.
type binding struct {
	uid string
	sub *profile.Subscription

	mu      sync.Mutex
	seen    int64
	changed chan struct{} // closed and replaced on every delivery
}

func newBinding(uid string) *binding {
	return &binding{uid: uid, changed: make(chan struct{})}
}

// delivered records that the snapshot at version has been committed.
func (b *binding) delivered(version int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if version > b.seen {
		b.seen = version
	}
	close(b.changed)
	b.changed = make(chan struct{})
}

// await blocks until version has been delivered. It also returns when the
// subscription stops, and with ctx's error when ctx is done first.
func (b *binding) await(ctx context.Context, version int64) error {
	for {
		b.mu.Lock()
		seen, changed := b.seen, b.changed
		b.mu.Unlock()
		if seen >= version {
			return nil
		}
		select {
		case <-changed:
		case <-b.sub.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops delivery and waits for a running callback to finish.
func (b *binding) close() {
	b.sub.Close()
	<-b.sub.Done()
}
