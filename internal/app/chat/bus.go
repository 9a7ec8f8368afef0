/*
Package chat contains the real-time messaging coordination core.

This file defines the Bus, which delivers one event to every subscriber of a
room. Delivery is best-effort and at-most-once per live connection: the
subscriber set is snapshotted under the registry lock, the lock is released,
and each push is a non-blocking channel send, so one stalled connection can
never hold up fan-out to the rest or block join/leave on unrelated connections.
*/
package chat

import (
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"chatflow/internal/pkg/logx"
)

// publishStripes is the number of room-serialization locks. Rooms hash onto a
// stripe; publishes for the same room always share one.
const publishStripes = 64

// Bus fans events out to the subscribers of a room.
type Bus struct {
	registry *Registry
	logger   zerolog.Logger

	// stripes serialize Publish per room so every subscriber's queue observes
	// the events of one room in a single global order, regardless of which
	// connection goroutine published them.
	stripes [publishStripes]sync.Mutex
}

// NewBus constructs a Bus delivering to the given registry's subscribers.
func NewBus(registry *Registry) *Bus {
	return &Bus{
		registry: registry,
		logger:   logx.Logger().With().Str("component", "Bus").Logger(),
	}
}

// Publish delivers event to every subscriber of roomID except excludeConnID
// (pass "" to deliver to all). It returns the number of subscribers whose
// outbound queue accepted the event. A saturated or mid-teardown subscriber
// loses that one delivery; the drop is logged and never fails the publish.
// Events are never queued for offline connections.
//
// Publishes for one room are serialized: a Publish does not begin enqueuing
// until the previous Publish for that room has enqueued to every subscriber,
// so per-connection queues never observe two events of a room out of order.
func (b *Bus) Publish(roomID string, event *Event, excludeConnID string) int {
	data, err := event.Encode()
	if err != nil {
		b.logger.Error().
			Str("room_id", roomID).
			Str("event_type", string(event.Type)).
			Err(err).
			Msg("Failed to encode event for fan-out.")
		return 0
	}

	stripe := b.stripeFor(roomID)
	stripe.Lock()
	defer stripe.Unlock()

	subs := b.registry.Subscribers(roomID)

	delivered := 0
	for _, sub := range subs {
		if sub.ID == excludeConnID {
			continue
		}

		if b.push(sub, data) {
			delivered++
		} else {
			b.logger.Warn().
				Str("room_id", roomID).
				Str("conn_id", sub.ID).
				Str("event_type", string(event.Type)).
				Msg("Delivery degraded: subscriber queue saturated or closing, event dropped.")
		}
	}

	return delivered
}

// Send delivers an event to a single subscriber outside any room fan-out,
// used for operation errors and soft warnings addressed to the originator.
func (b *Bus) Send(sub *Subscriber, event *Event) bool {
	data, err := event.Encode()
	if err != nil {
		b.logger.Error().
			Str("conn_id", sub.ID).
			Str("event_type", string(event.Type)).
			Err(err).
			Msg("Failed to encode direct event.")
		return false
	}

	return b.push(sub, data)
}

// stripeFor maps a room identifier onto its serialization lock.
func (b *Bus) stripeFor(roomID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return &b.stripes[h.Sum32()%publishStripes]
}

// push performs a single non-blocking enqueue. A closed channel during
// teardown panics on send; that one delivery is discarded via recover.
func (b *Bus) push(sub *Subscriber, data []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case sub.send <- data:
		return true
	default:
		return false
	}
}
