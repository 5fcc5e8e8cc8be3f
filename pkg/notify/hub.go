package notify

import (
	"sync"
	"time"
)

// Hub fans events out to subscribers. Slow subscribers drop events
// rather than blocking publishers; the purchase flow must never stall
// on a disconnected UI.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events and a cancel function. The
// channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers, dropping it for any
// subscriber whose buffer is full.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// HubNotifier adapts a Hub into a Notifier so toast-style messages
// reach UI subscribers as events.
type HubNotifier struct {
	Hub *Hub
}

func (n HubNotifier) Success(msg string) {
	n.Hub.Publish(Event{Kind: EventSuccess, Message: msg})
}

func (n HubNotifier) Error(msg string) {
	n.Hub.Publish(Event{Kind: EventError, Message: msg})
}
