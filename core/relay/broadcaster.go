package relay

// EventSink receives every broadcast event. Publish must not block.
type EventSink interface {
	Publish(msg Message)
}

// Broadcaster delivers integrity events to all observers connected at call time.
type Broadcaster struct {
	registry *Registry
	sink     EventSink
}

func NewBroadcaster(registry *Registry, sink EventSink) *Broadcaster {
	return &Broadcaster{registry: registry, sink: sink}
}

// Broadcast returns the number of observers the event was queued for.
func (b *Broadcaster) Broadcast(msg Message) int {
	var n int
	for _, conn := range b.registry.Observers() {
		if conn.Send(msg) {
			n++
		}
	}
	if b.sink != nil {
		b.sink.Publish(msg)
	}
	return n
}
