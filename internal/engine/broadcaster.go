package engine

import (
	"sync"

	"edlengine/internal/logger"
)

const subscriberQueueDepth = 64

// subscriber is a single live Subscribe connection's event queue. Writes
// happen only from Register, Broadcast and Send while holding
// Broadcaster.mu, so at most one goroutine at a time sends on ch; the
// stream goroutine only receives (deliver also receives, to drop the
// oldest event on overflow).
type subscriber struct {
	id          string
	ch          chan Event
	droppedOnce bool
}

// Broadcaster owns the live subscriber set and fans events out to each.
// Per §9's design note, a slow subscriber never blocks the broadcaster:
// each subscriber has a bounded queue and overflow drops the oldest queued
// event, emitting one SlowConsumer event instead of blocking.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]*subscriber)}
}

// Register creates a new subscriber queue, atomically enqueues any initial
// events (e.g. the BackendStatus/EdlApplied pair Subscribe sends before
// any broadcast could race it in), and returns the receive channel.
// Callers must eventually call Unregister.
func (b *Broadcaster) Register(id string, initial ...Event) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{id: id, ch: make(chan Event, subscriberQueueDepth)}
	b.subs[id] = sub
	for _, ev := range initial {
		b.deliver(sub, ev)
	}
	return sub.ch
}

// Unregister removes and closes a subscriber's queue.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Broadcast delivers event to every live subscriber, in the order
// Broadcast is called, preserving per-subscriber order. Broadcasts are
// best-effort across subscribers: write failure for one subscriber never
// blocks or affects delivery to another.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		b.deliver(sub, event)
	}
}

// Send delivers event to exactly one subscriber by id, with the same
// drop-oldest queue discipline as broadcast events. Subscribe does not use
// it: its initial BackendStatus/EdlApplied events go through Register.
func (b *Broadcaster) Send(id string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		b.deliver(sub, event)
	}
}

func (b *Broadcaster) deliver(sub *subscriber, event Event) {
	select {
	case sub.ch <- event:
		sub.droppedOnce = false
		return
	default:
	}

	// Queue full: drop the oldest queued event to make room.
	select {
	case <-sub.ch:
	default:
	}

	if !sub.droppedOnce {
		sub.droppedOnce = true
		logger.Warn("subscriber queue overflow, dropping oldest event", logger.String("subscriber_id", sub.id))
		// Drop one more so both the SlowConsumer marker and event fit.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- slowConsumer():
		default:
		}
	}

	select {
	case sub.ch <- event:
	default:
	}
}

// Count returns the number of live subscribers, used for diagnostics.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
