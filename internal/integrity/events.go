package integrity

import (
	"sync"
	"time"
)

// Event names published by the engine.
const (
	EventVerified = "integrity.verified"
	EventRepaired = "integrity.repaired"
	EventFailed   = "integrity.failed"
)

// Event describes one finished verification.
type Event struct {
	Name     string
	Model    string
	Outcome  Outcome
	Duration time.Duration
}

// EventPublisher receives engine events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Publishers fans an event out to every non-nil publisher in order.
type Publishers []EventPublisher

func (ps Publishers) Publish(e Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(e)
		}
	}
}

// MemoryPublisher stores events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func eventName(s Status) string {
	switch s {
	case StatusVerified:
		return EventVerified
	case StatusRepaired:
		return EventRepaired
	default:
		return EventFailed
	}
}
