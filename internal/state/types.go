package state

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/storefront/internal/catalog"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is an ephemeral alert shown to the user.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// User is the signed-in account merged with its profile record.
type User struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
}

// CartEntry is one line of the cart. It owns a copy of the catalog item's
// display fields; Quantity is always >= 1 while the entry is in the cart.
type CartEntry struct {
	ItemID      string          `json:"itemId"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"imageUrl"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal returns Price x Quantity.
func (e CartEntry) Subtotal() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Op names a mutation primitive.
type Op string

const (
	OpUserSet           Op = "user.set"
	OpNotificationPush  Op = "notification.push"
	OpNotificationShift Op = "notification.shift"
	OpNotificationShow  Op = "notification.show"
	OpUploadProgress    Op = "upload.progress"
	OpLoadingClear      Op = "loading.clear"
	OpCartAdd           Op = "cart.add"
	OpCartRemove        Op = "cart.remove"
	OpCartIncrement     Op = "cart.increment"
	OpCartDecrement     Op = "cart.decrement"
	OpCartClear         Op = "cart.clear"
)

// Change describes one applied mutation.
type Change struct {
	Seq int64 `json:"seq"`
	Op  Op    `json:"op"`

	// ItemID and Quantity are set by cart operations. Quantity is the
	// entry's quantity after the mutation; 0 means the entry was removed.
	ItemID   string `json:"itemId,omitempty"`
	Quantity int    `json:"quantity,omitempty"`

	// Notification is set by push and shift.
	Notification *Notification `json:"notification,omitempty"`

	// Visible is the notification visibility flag after the mutation.
	Visible bool `json:"visible"`

	// Progress is set by upload.progress.
	Progress float64 `json:"progress,omitempty"`

	// User is set by user.set; nil means the user was cleared.
	User *User `json:"user,omitempty"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Seq                  int64           `json:"seq"`
	Loading              bool            `json:"loading"`
	User                 *User           `json:"user"`
	Progress             float64         `json:"progress"`
	Notification         *Notification   `json:"notification"`
	NotificationVisible  bool            `json:"notificationVisible"`
	PendingNotifications int             `json:"pendingNotifications"`
	Cart                 []CartEntry     `json:"cart"`
	CartCount            int             `json:"cartCount"`
	CartTotal            decimal.Decimal `json:"cartTotal"`
	Catalog              []catalog.Item  `json:"catalog"`
	Categories           []string        `json:"categories"`
}
