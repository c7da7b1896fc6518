// Package profile is the key-value profile store of the storefront: one
// record per account holding the display name, phone and avatar URL.
//
// Subscribers receive the current snapshot right after Subscribe and then
// one snapshot per write, in write order. Delivery happens on a goroutine
// owned by the subscription; see mailbox.go.
package profile

import (
	"context"

	"github.com/roach88/storefront/internal/remote"
)

// Error codes.
const (
	CodeInternal = "profile/internal"
	CodeNoUID    = "profile/invalid-argument"
)

// Record is a stored profile.
type Record struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatarUrl"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Phone     *string
	AvatarURL *string
}

// Apply returns r with the patch's non-nil fields written over it.
func (p Patch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.AvatarURL != nil {
		r.AvatarURL = *p.AvatarURL
	}
	return r
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.AvatarURL == nil
}

// Snapshot is the state of one record at a point in time.
type Snapshot struct {
	UID     string
	Record  Record
	Exists  bool
	Version int64
}

// Store is the profile collaborator.
type Store interface {
	// Subscribe registers fn for the record of uid. fn is first called with
	// the current snapshot (Exists false when there is no record yet), then
	// after every write. ctx bounds only the initial read.
	Subscribe(ctx context.Context, uid string, fn func(Snapshot)) (*Subscription, error)

	// Get reads the current snapshot.
	Get(ctx context.Context, uid string) (Snapshot, error)

	// Set creates or replaces the record and returns the version written.
	Set(ctx context.Context, uid string, rec Record) (int64, error)

	// Update writes the patch's fields over the record, creating it when
	// missing, and returns the version written.
	Update(ctx context.Context, uid string, patch Patch) (int64, error)
}

func checkUID(uid string) error {
	if uid == "" {
		return remote.New(remote.ServiceProfile, CodeNoUID, "empty uid")
	}
	return nil
}
