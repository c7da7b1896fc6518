// Package state implements the storefront session's state container.
//
// A Store holds every piece of session state in memory: the loading flag,
// the signed-in user, upload progress, the notification FIFO and its
// visibility flag, the catalog, the cart and the category list.
//
// ARCHITECTURE:
//
// Single writer:
// Every mutation primitive runs under one mutex, so exactly one mutation
// completes at a time regardless of how many goroutines drive the session.
// Primitives are total and deterministic; they never call out to external
// services and never block on anything but the mutex.
//
// Logical clock:
// Each applied mutation is stamped with the next value of a monotonic
// sequence counter. Primitives that leave state unchanged (unknown item id,
// item already in the cart) are not stamped and publish nothing.
//
// Change stream:
// Applied mutations are published as Change values to listeners registered
// with Listen, in sequence order. Listeners run synchronously on the
// mutating goroutine and must not call mutation primitives.
//
// Accessors return copies; callers never alias store internals. Cart
// entries own a copy of the catalog display fields plus their own quantity,
// so the catalog is never modified by cart operations.
package state
