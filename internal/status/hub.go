// Package status exposes the running instrument over HTTP: a health probe,
// a JSON snapshot of devices and measurement progress, a stop control, and
// a websocket stream carrying live measurement data for plotting clients.
package status

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is one message on the live stream.
type Event struct {
	Topic   string    `json:"topic"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// Hub fans published events out to websocket subscribers. Slow subscribers
// drop events instead of stalling the measurement loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Publish implements experiment.Publisher.
func (h *Hub) Publish(topic string, payload any) {
	raw, err := json.Marshal(Event{Topic: topic, Time: time.Now().UTC(), Payload: payload})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- raw:
		default:
		}
	}
}

// subscribe registers a new subscriber channel.
func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// unsubscribe removes a subscriber channel.
func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
