// Package notify drives the session's transient alert queue.
//
// The queue is FIFO and decoupled from display timing. It moves between
// three phases:
//
//	Empty ──Enqueue──▶ Displaying ──Dismiss──▶ Hiding ──gap──▶ Displaying
//	                                              │
//	                                              └──gap, queue empty──▶ Empty
//
// Producers only ever Enqueue; the UI drives Dismiss. After a dismissal the
// queue stays hidden for the configured gap (DefaultGap) before the next
// head is shown, so two alerts are never shown back to back. Notifications
// enqueued while Hiding wait for the gap like everything else.
//
// The queue owns no state of its own beyond its phase: the notifications
// and the visibility flag live in the state store and are changed only
// through its primitives.
package notify
