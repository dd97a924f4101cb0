package notify

import (
	"sync"
)

const subscriberBuffer = 8

// Event is pushed to subscribers whenever notification state changes.
type Event struct {
	Kind  string `json:"kind"`
	Link  string `json:"link,omitempty"`
	State State  `json:"state"`
}

const (
	// EventStateChanged reports a new unread count or panel content.
	EventStateChanged = "state-changed"
	// EventNavigate asks the client to open a notification's link.
	EventNavigate = "navigate"
)

// Hub fans events out to all connected subscribers. A slow subscriber never
// blocks publishing; events it cannot keep up with are dropped.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new listener. The returned cancel function must be
// called when the listener goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of connected listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
