package favorites

// EventKind names what changed.
type EventKind string

const (
	// EventFavorites is sent after a favorite is added, removed or rotated.
	EventFavorites EventKind = "favorites"

	// EventExitNode is sent after the daemon reports a new exit node state.
	EventExitNode EventKind = "exit-node"
)

// subscriberBuffer is the number of events queued per subscriber before
// new events are dropped for it.
const subscriberBuffer = 16

// Event is a change notification delivered to subscribers.
type Event struct {
	Kind       EventKind `json:"kind"`
	FavoriteID string    `json:"favorite_id,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
}

// Subscribe registers for change events. The returned cancel function
// unregisters and closes the channel; it is safe to call more than once.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}

	return ch, cancel
}

// publish delivers ev to every subscriber without blocking.
func (m *Manager) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
