package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/storefront/internal/state"
)

// Event types pushed on /events.
const (
	EventSnapshot = "snapshot"
	EventChange   = "change"
)

// eventBuffer is how many changes a client may lag behind before it is
// disconnected.
const eventBuffer = 256

const writeWait = 10 * time.Second

// Event is one websocket message.
type Event struct {
	Type     string          `json:"type"`
	Snapshot *state.Snapshot `json:"snapshot,omitempty"`
	Change   *state.Change   `json:"change,omitempty"`
}

// events upgrades to a websocket, sends the current snapshot and then every
// state change. Clients that fall too far behind are disconnected.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	changes := make(chan state.Change, eventBuffer)
	overflow := make(chan struct{})
	var overflowed bool

	// Listeners run under the store's dispatch lock and must not block.
	cancel := s.sess.Listen(func(c state.Change) {
		if overflowed {
			return
		}
		select {
		case changes <- c:
		default:
			overflowed = true
			close(overflow)
		}
	})
	defer cancel()

	// Subscribe before snapshotting so no change is missed; changes already
	// covered by the snapshot are skipped by sequence number.
	snap := s.sess.Store().Snapshot()
	if err := writeEvent(conn, Event{Type: EventSnapshot, Snapshot: &snap}); err != nil {
		return
	}

	// Reader: detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case c := <-changes:
			if c.Seq <= snap.Seq {
				continue
			}
			if err := writeEvent(conn, Event{Type: EventChange, Change: &c}); err != nil {
				return
			}
		case <-overflow:
			slog.Info("events client too slow, disconnecting", "remote", r.RemoteAddr)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
