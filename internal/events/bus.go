// Package events – change event bus.
//
// The bus is an in-process fan-out broadcaster. Every subscribed session
// receives every event (filtering is a client concern). Delivery is
// at-least-once while a session stays subscribed; nothing is buffered for
// offline sessions, and a reconnecting session must treat its local cache
// as stale and resynchronize rather than request replay.
//
// Publish never blocks the writer that produced the event: each session
// owns a bounded buffer, and a session whose buffer is full is dropped
// (unsubscribed and its channel closed) instead of backpressuring the
// mutation path. Per-recipe ordering is preserved because mutations to one
// recipe are serialized upstream and Publish appends to every live buffer
// under one lock; no ordering holds across different recipes or across a
// disconnect/reconnect gap.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	// busPublished counts events accepted by the bus, by kind.
	busPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total number of domain events published to the bus.",
		},
		[]string{"kind"},
	)

	// busDropped counts subscribers dropped for not keeping up.
	busDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_subscribers_dropped_total",
			Help: "Total number of subscribers dropped due to a full buffer.",
		},
	)

	// busSubscribers gauges currently connected subscribers.
	busSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_subscribers",
			Help: "Current number of bus subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(busPublished, busDropped, busSubscribers)
}

// Publisher is the narrow interface services use to emit events.
type Publisher interface {
	Publish(ev Event)
}

// DefaultBufferSize is the per-subscriber buffer used when NewBus is given
// a non-positive size.
const DefaultBufferSize = 64

// Subscription is one session's view of the bus. Receive from C until it is
// closed; a close means the session was unsubscribed or dropped, and the
// consumer should end its stream so the client reconnects and resyncs.
type Subscription struct {
	// ID identifies the subscription for Unsubscribe.
	ID string
	// C delivers events in publish order as observed by this session.
	C <-chan Event

	ch chan Event
}

// Bus fans events out to all current subscriptions.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	buffer int
	closed bool
}

// NewBus returns a bus whose subscribers each buffer up to size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{subs: make(map[string]*Subscription), buffer: size}
}

// Subscribe registers a new session and returns its subscription.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub.ID] = sub
	busSubscribers.Set(float64(len(b.subs)))
	return sub
}

// Unsubscribe removes a session and closes its channel. It is safe to call
// for an already-removed id (e.g. after the bus dropped the session).
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
		busSubscribers.Set(float64(len(b.subs)))
	}
}

// Publish delivers ev to every subscriber without blocking. Subscribers
// whose buffer is full are dropped and their channels closed. Delivery
// failures are never surfaced to the caller: a dropped session falls back
// to the staleness-triggered resync on its next connection.
func (b *Bus) Publish(ev Event) {
	busPublished.WithLabelValues(string(ev.Kind)).Inc()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(b.subs, id)
			close(sub.ch)
			busDropped.Inc()
			log.Warn().
				Str("subscription_id", id).
				Str("kind", string(ev.Kind)).
				Msg("bus subscriber dropped: buffer full")
		}
	}
	busSubscribers.Set(float64(len(b.subs)))
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscriptions and rejects further publishes. Used on
// server shutdown so streaming handlers terminate promptly.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
	busSubscribers.Set(0)
}
