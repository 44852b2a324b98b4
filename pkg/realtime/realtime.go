// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan out newly stored messages to multiple listeners (e.g. WebSocket
// firehose sessions).
//
// Delivery is best effort: slow listeners drop events rather than
// backpressure ingestion, and there is no persistence or replay.
package realtime

import (
	"sync"
	"time"
)

// MessageEvent mirrors the stored message fields a firehose consumer needs.
type MessageEvent struct {
	ID           string    `json:"id"`
	Body         string    `json:"body"`
	FlowLabel    string    `json:"flow_label,omitempty"`
	ContactID    int64     `json:"contact_id"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	InsertedAt   time.Time `json:"inserted_at"`
}

// Event is the hub's envelope, leaving room for future event kinds without
// changing channel element types. Currently only Type == "message" is
// produced.
type Event struct {
	Type    string       `json:"type"`
	Message MessageEvent `json:"message"`
}

// Hub is an in-memory fan-out dispatcher. Each listener receives events via
// its own buffered channel; if a listener's buffer is full the event is
// dropped for that listener only. The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a listener and returns its id and receive channel. Callers
// must Unregister(id) when done.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener and closes its channel. Safe to call more
// than once; unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers a message event to all listeners, best effort.
func (h *Hub) Broadcast(msg MessageEvent) {
	ev := Event{Type: "message", Message: msg}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners (approximate).
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
