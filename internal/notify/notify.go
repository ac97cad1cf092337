// internal/notify/notify.go
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a short text message to a user. Delivery is best-effort:
// implementations must never block the caller and must swallow failures
// (logging them at most). Settlement never depends on a notification landing.
type Notifier interface {
	Notify(userID int64, text string)
}

// NopNotifier drops everything. Used in tests and headless runs.
type NopNotifier struct{}

func (NopNotifier) Notify(int64, string) {}

// Message is one queued notification.
type Message struct {
	Text string `json:"text"`
}

// Conn is one user's live delivery channel. OutChan is drained by the
// transport (the websocket handler); Cancel tears down its goroutines.
type Conn struct {
	UserID  int64
	OutChan chan Message
	Cancel  func()
}

// Hub fans notifications out to connected users. Users without a live
// connection simply miss the message.
type Hub struct {
	mu    sync.Mutex
	conns map[int64]*Conn
	log   *logrus.Logger
}

// NewHub returns an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		conns: make(map[int64]*Conn),
		log:   log,
	}
}

// Register attaches a connection for userID, replacing and closing any
// previous one.
func (h *Hub) Register(conn *Conn) {
	h.mu.Lock()
	old := h.conns[conn.UserID]
	h.conns[conn.UserID] = conn
	h.mu.Unlock()

	if old != nil && old != conn {
		close(old.OutChan)
		if old.Cancel != nil {
			old.Cancel()
		}
	}
}

// Unregister detaches the connection if it is still the current one.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	current, ok := h.conns[conn.UserID]
	if ok && current == conn {
		delete(h.conns, conn.UserID)
	}
	h.mu.Unlock()

	if ok && current == conn {
		close(conn.OutChan)
		if conn.Cancel != nil {
			conn.Cancel()
		}
	}
}

// Notify implements Notifier. The send is non-blocking: a full channel
// drops the message with a warning. The send happens under the hub lock
// so it can never hit a channel that Unregister already closed.
func (h *Hub) Notify(userID int64, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[userID]
	if !ok {
		return
	}

	select {
	case conn.OutChan <- Message{Text: text}:
	default:
		h.log.WithField("user", userID).Warn("notification channel full, message dropped")
	}
}

// Connected reports whether userID has a live connection.
func (h *Hub) Connected(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[userID]
	return ok
}
