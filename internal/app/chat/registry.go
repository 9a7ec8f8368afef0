/*
Package chat contains the real-time messaging coordination core.

This file defines the Registry, which maps room identifiers to the set of
currently-subscribed connections. Subscription management is deliberately
separate from delivery (see bus.go) so each can be exercised on its own.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"chatflow/internal/pkg/logx"
)

// subscriberSendBuffer is the outbound queue depth per connection.
const subscriberSendBuffer = 256

// Subscriber is one live connection's delivery endpoint: its identifier, the
// identity it authenticated as, and the buffered outbound channel the bus
// pushes encoded events onto.
type Subscriber struct {
	ID       string
	Identity string

	send chan []byte

	closeOnce sync.Once
}

// NewSubscriber constructs a delivery endpoint for a connection.
func NewSubscriber(connID, identity string) *Subscriber {
	return &Subscriber{
		ID:       connID,
		Identity: identity,
		send:     make(chan []byte, subscriberSendBuffer),
	}
}

// Outbound exposes the receive side of the subscriber's queue to the write pump.
func (s *Subscriber) Outbound() <-chan []byte {
	return s.send
}

// Close shuts the outbound channel exactly once, interrupting the write pump.
// In-flight publishes targeting this subscriber fall into the drop path.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// Registry tracks which connections are subscribed to which rooms.
// Rooms are created implicitly on first join and evicted as soon as their
// subscriber set becomes empty.
type Registry struct {
	mu sync.RWMutex

	// rooms maps a room identifier to its subscribers, keyed by connection identifier.
	rooms map[string]map[string]*Subscriber

	// memberships maps a connection identifier to the rooms it joined, for purge.
	memberships map[string]map[string]struct{}

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]map[string]*Subscriber),
		memberships: make(map[string]map[string]struct{}),
		logger:      logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Join adds the subscriber to the room. Idempotent; joining a room the
// connection is already in is a no-op.
func (r *Registry) Join(roomID string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*Subscriber)
		r.rooms[roomID] = room
	}

	if _, joined := room[sub.ID]; joined {
		return
	}

	room[sub.ID] = sub

	membership, ok := r.memberships[sub.ID]
	if !ok {
		membership = make(map[string]struct{})
		r.memberships[sub.ID] = membership
	}
	membership[roomID] = struct{}{}

	r.logger.Debug().
		Str("room_id", roomID).
		Str("conn_id", sub.ID).
		Int("subscribers", len(room)).
		Msg("Connection joined room.")
}

// Leave removes the connection from the room. Idempotent; an empty room is
// evicted immediately.
func (r *Registry) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(roomID, connID)
}

func (r *Registry) leaveLocked(roomID, connID string) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if _, joined := room[connID]; !joined {
		return
	}

	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}

	if membership, ok := r.memberships[connID]; ok {
		delete(membership, roomID)
		if len(membership) == 0 {
			delete(r.memberships, connID)
		}
	}
}

// IdentityPresent reports whether any connection authenticated as identity is
// still subscribed to the room. One identity may hold several connections
// (multiple tabs); presence tracks the identity, not the connection.
func (r *Registry) IdentityPresent(roomID, identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.rooms[roomID] {
		if sub.Identity == identity {
			return true
		}
	}
	return false
}

// Member reports whether the connection is currently subscribed to the room.
func (r *Registry) Member(roomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	_, joined := room[connID]
	return joined
}

// Subscribers returns a snapshot of the room's subscriber set. The snapshot is
// taken under the read lock and is safe to iterate after release.
func (r *Registry) Subscribers(roomID string) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	subs := make([]*Subscriber, 0, len(room))
	for _, sub := range room {
		subs = append(subs, sub)
	}

	return subs
}

// Purge removes the connection from every room it joined and returns those
// room identifiers. Invoked exactly once on connection teardown; afterwards no
// room lists the connection.
func (r *Registry) Purge(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	membership, ok := r.memberships[connID]
	if !ok {
		return nil
	}

	roomIDs := make([]string, 0, len(membership))
	for roomID := range membership {
		roomIDs = append(roomIDs, roomID)
	}

	for _, roomID := range roomIDs {
		r.leaveLocked(roomID, connID)
	}

	r.logger.Debug().
		Str("conn_id", connID).
		Int("rooms", len(roomIDs)).
		Msg("Connection purged from all rooms.")

	return roomIDs
}
