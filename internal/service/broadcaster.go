package service

// Broadcaster is the transport the coordinators notify after state is
// decided. Delivery is best-effort; nothing here is authoritative.
type Broadcaster interface {
	Publish(roomID string, event string, payload interface{})
}

// nopBroadcaster keeps the coordinators usable without a hub (tests, CLIs).
type nopBroadcaster struct{}

func (nopBroadcaster) Publish(string, string, interface{}) {}
