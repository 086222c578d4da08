package event

import "sync"

// Bus is an unbounded multi-producer, single-consumer queue of AppEvents.
// Any goroutine may publish; only the main loop drains.
type Bus struct {
	mu      sync.Mutex
	pending []AppEvent
	closed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Publisher returns a handle for producers. Publishers are small values and
// may be copied freely across goroutines.
func (b *Bus) Publisher() Publisher {
	return Publisher{bus: b}
}

// Drain returns all pending events in FIFO order without blocking.
func (b *Bus) Drain() []AppEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// Close disconnects the consumer. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.pending = nil
}

func (b *Bus) push(e AppEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending = append(b.pending, e)
}

// Publisher enqueues events on a Bus.
type Publisher struct {
	bus *Bus
}

// Publish enqueues e. It never blocks; after the bus is closed, or on a
// zero Publisher, it does nothing.
func (p Publisher) Publish(e AppEvent) {
	if p.bus == nil {
		return
	}
	p.bus.push(e)
}
