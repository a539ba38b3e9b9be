// README: Process-wide pub/sub hub for pushing dispatch events to connected clients.
package realtime

import (
	"sync"
	"time"
)

// Event is a single server-to-client push message.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"data"`
	Scope   string    `json:"scope,omitempty"`
	At      time.Time `json:"at"`
}

// Subscriber receives events on a buffered channel. Delivery is best-effort:
// when the buffer is full the event is dropped for that subscriber, who must
// reconcile via a full-state fetch.
type Subscriber struct {
	C     chan Event
	scope string
}

type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
	now  func() time.Time
}

const subscriberBuffer = 32

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscriber]struct{}),
		now:  time.Now,
	}
}

// Subscribe registers a client. An empty scope receives every event;
// a non-empty scope additionally filters to events published for that scope.
func (h *Hub) Subscribe(scope string) *Subscriber {
	sub := &Subscriber{
		C:     make(chan Event, subscriberBuffer),
		scope: scope,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
	}
	h.mu.Unlock()
}

// Publish delivers the event to every subscriber matching scope. An empty
// scope broadcasts to all; a scoped event reaches scoped subscribers with the
// same scope plus every unscoped subscriber. No acknowledgement, no retry.
func (h *Hub) Publish(name string, payload any, scope string) {
	evt := Event{Name: name, Payload: payload, Scope: scope, At: h.now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if scope != "" && sub.scope != "" && sub.scope != scope {
			continue
		}
		select {
		case sub.C <- evt:
		default:
			// Slow consumer; drop rather than block the publisher.
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
