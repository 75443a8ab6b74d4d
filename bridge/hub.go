package bridge

import "sync"

// OAuthMessageType is the fixed discriminator carried by messages the
// cross-context bridge page emits toward its opener.
const OAuthMessageType = "tg_oauth"

// Message is one cross-context message. Untagged or foreign-tagged
// messages never reach subscribers.
type Message struct {
	Type    string
	Payload map[string]string
}

// Hub is the cross-context message channel between the callback bridge
// page and the waiting popup watcher. Subscriptions are removed at
// teardown, so anything published afterwards is dropped.
type Hub struct {
	mu    sync.Mutex
	next  int
	subs  map[int]chan Message
	types map[int]string
}

func NewHub() *Hub {
	return &Hub{
		subs:  make(map[int]chan Message),
		types: make(map[int]string),
	}
}

// Subscribe registers interest in messages tagged msgType. The returned
// cancel is idempotent and detaches the subscription synchronously.
func (h *Hub) Subscribe(msgType string) (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Message, 1)
	h.subs[id] = ch

	// The tag filter lives on the publish side; the per-subscription
	// channel only ever sees its own type.
	h.types[id] = msgType

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
		delete(h.types, id)
	}
	return ch, cancel
}

// Publish fans a message out to matching subscribers. A subscriber that
// has already received a message and moved on does not block the
// publisher; the extra signal is dropped, matching the first-signal-wins
// contract.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	var targets []chan Message
	for id, ch := range h.subs {
		if h.types[id] == m.Type {
			targets = append(targets, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- m:
		default:
		}
	}
}
