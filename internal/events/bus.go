package events

import (
	"context"
	"log/slog"
	"sync"
)

// subAll is the subscription key for firehose subscribers.
const subAll = "*"

// Bus fans published events out to subscribers. A subscription covers
// one event type or the firehose; delivery is non-blocking, and a full
// subscriber drops the event rather than stalling the publisher.
//
// With an EventLog attached the bus appends each event before fan-out,
// so no consumer can observe an event the log missed. Pass a nil log
// to run the bus as pure delivery; the daemon does that and persists
// through an async handler instead.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	log    *EventLog
	logger *slog.Logger
	closed bool
}

// NewBus creates an event bus, optionally backed by an event log.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]chan Event),
		log:    log,
		logger: logger,
	}
}

// Publish persists e (when a log is attached) and delivers it to every
// matching subscriber. Publishing to a closed bus is a no-op.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	targets := make([]chan Event, 0, len(b.subs[e.EventType()])+len(b.subs[subAll]))
	targets = append(targets, b.subs[e.EventType()]...)
	targets = append(targets, b.subs[subAll]...)
	b.mu.RUnlock()

	if b.log != nil {
		if _, err := b.log.Append(e); err != nil {
			// Delivery still happens; the gap is logged, not fatal.
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	for _, ch := range targets {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber full, dropping event",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_id", e.EntityID())
		}
	}
	return nil
}

// Subscribe returns a channel receiving events of one type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	return b.add(eventType, bufferSize)
}

// SubscribeAll returns a channel receiving every published event.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	return b.add(subAll, bufferSize)
}

func (b *Bus) add(key string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		// Late subscribers get the same signal as everyone else at
		// shutdown: a closed channel.
		close(ch)
		return ch
	}
	b.subs[key] = append(b.subs[key], ch)
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, subs := range b.subs {
		for i, sub := range subs {
			if sub == ch {
				b.subs[key] = append(subs[:i], subs[i+1:]...)
				close(sub)
				return
			}
		}
	}
}

// Close closes every subscriber channel and turns further Publish and
// Subscribe calls into no-ops.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subs = nil
	return nil
}
