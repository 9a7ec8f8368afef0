/*
Package chat contains the real-time messaging coordination core.

This file defines the Hub, which wires the pieces together per operation:
the rate gate admits or rejects, the lifecycle engine computes the new state
and resulting event, the bus fans the event out to registry subscribers, and
the durable store receives a fire-and-forget persist intent. Nothing on this
path blocks on storage or external calls.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/gate"
	"chatflow/internal/pkg/logx"
)

// persistTimeout bounds each background persist intent.
const persistTimeout = 5 * time.Second

// Store is the durable persistence collaborator. The hub emits persist intents
// and trusts acknowledgement; a failure is logged and surfaced as a soft
// warning to the sender, never rolled back, since retracting an already
// fanned-out message would itself need a new deletion event.
type Store interface {
	PersistMessage(ctx context.Context, msg *Message) error
	UpdateMessage(ctx context.Context, msg *Message) error
}

// PresenceTracker records which identities are online in which rooms.
// Best-effort: failures are logged and never block the fan-out path.
type PresenceTracker interface {
	Join(ctx context.Context, roomID, identity string) error
	Leave(ctx context.Context, roomID, identity string) error
}

// Hub coordinates rate admission, lifecycle state, and fan-out for all
// connections. Store and presence may be nil, leaving those intents off.
type Hub struct {
	registry  *Registry
	bus       *Bus
	lifecycle *Lifecycle
	gate      *gate.Gate
	store     Store
	presence  PresenceTracker
	logger    zerolog.Logger
}

// NewHub constructs a Hub around the given collaborators.
func NewHub(g *gate.Gate, store Store, presence PresenceTracker) *Hub {
	registry := NewRegistry()

	return &Hub{
		registry:  registry,
		bus:       NewBus(registry),
		lifecycle: NewLifecycle(),
		gate:      g,
		store:     store,
		presence:  presence,
		logger:    logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Registry exposes the subscription table, for presence reads.
func (h *Hub) Registry() *Registry { return h.registry }

// Lifecycle exposes the authoritative message table.
func (h *Hub) Lifecycle() *Lifecycle { return h.lifecycle }

// JoinRoom subscribes the connection to a room. Rooms come into being on
// first join; no pre-registration exists.
func (h *Hub) JoinRoom(sub *Subscriber, roomID string) *errs.CustomError {
	if roomID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	h.registry.Join(roomID, sub)

	if h.presence != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()

			if err := h.presence.Join(ctx, roomID, sub.Identity); err != nil {
				h.logger.Warn().
					Str("room_id", roomID).
					Str("identity", sub.Identity).
					Err(err).
					Msg("Presence join failed.")
			}
		}()
	}

	return nil
}

// LeaveRoom unsubscribes the connection from a room.
func (h *Hub) LeaveRoom(sub *Subscriber, roomID string) *errs.CustomError {
	if roomID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	h.registry.Leave(roomID, sub.ID)
	h.presenceLeave(roomID, sub.Identity)

	return nil
}

// Disconnect tears down a connection: it is purged from every room (exactly
// once, also on abnormal closure) and its outbound queue is closed so any
// in-flight publish targeting it falls into the drop path without affecting
// delivery to other subscribers.
func (h *Hub) Disconnect(sub *Subscriber) {
	roomIDs := h.registry.Purge(sub.ID)

	for _, roomID := range roomIDs {
		h.presenceLeave(roomID, sub.Identity)
	}

	sub.Close()
}

func (h *Hub) presenceLeave(roomID, identity string) {
	if h.presence == nil {
		return
	}

	// The identity stays online while any of its other connections remains
	// subscribed to the room; only the last one leaving clears it.
	if h.registry.IdentityPresent(roomID, identity) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := h.presence.Leave(ctx, roomID, identity); err != nil {
			h.logger.Warn().
				Str("room_id", roomID).
				Str("identity", identity).
				Err(err).
				Msg("Presence leave failed.")
		}
	}()
}

// SendMessage runs the full path for a send: gate, lifecycle create, persist
// intent, fan-out. The event is delivered to every subscriber including the
// sender, whose copy carries the correlation token for reconciliation.
func (h *Hub) SendMessage(sub *Subscriber, roomID, content string, kind Kind, replyTo, correlationToken string) *errs.CustomError {
	if !h.registry.Member(roomID, sub.ID) {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if decision := h.gate.Admit(sub.Identity, gate.ClassSendMessage); !decision.Allowed {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	event, customErr := h.lifecycle.Create(roomID, sub.Identity, content, kind, replyTo, correlationToken)
	if customErr != nil {
		return customErr
	}

	h.persistIntent(sub, event.MessageCreated.Message, true)
	h.bus.Publish(roomID, event, "")

	return nil
}

// EditMessage runs the edit path. Ownership and tombstone checks live in the
// lifecycle engine; the sender receives the event along with everyone else.
func (h *Hub) EditMessage(sub *Subscriber, messageID, newContent string) *errs.CustomError {
	if decision := h.gate.Admit(sub.Identity, gate.ClassSendMessage); !decision.Allowed {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	event, customErr := h.lifecycle.Edit(messageID, sub.Identity, newContent)
	if customErr != nil {
		return customErr
	}

	msg := event.MessageEdited.Message
	h.persistIntent(sub, msg, false)
	h.bus.Publish(msg.RoomID, event, "")

	return nil
}

// DeleteMessage tombstones a message and fans the deletion out exactly once.
func (h *Hub) DeleteMessage(sub *Subscriber, messageID string) *errs.CustomError {
	if decision := h.gate.Admit(sub.Identity, gate.ClassSendMessage); !decision.Allowed {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	event, customErr := h.lifecycle.Remove(messageID, sub.Identity)
	if customErr != nil {
		return customErr
	}

	if tombstone := h.lifecycle.Get(messageID); tombstone != nil {
		h.persistIntent(sub, tombstone, false)
	}
	h.bus.Publish(event.MessageDeleted.RoomID, event, "")

	return nil
}

// React toggles a reaction and fans out the resulting full reaction list.
func (h *Hub) React(sub *Subscriber, messageID, emoji string) *errs.CustomError {
	if decision := h.gate.Admit(sub.Identity, gate.ClassSendMessage); !decision.Allowed {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	event, customErr := h.lifecycle.React(messageID, sub.Identity, emoji)
	if customErr != nil {
		return customErr
	}

	if updated := h.lifecycle.Get(messageID); updated != nil {
		h.persistIntent(sub, updated, false)
	}
	h.bus.Publish(event.ReactionUpdated.RoomID, event, "")

	return nil
}

// Typing fans out the ephemeral typing indicator, excluding the originator.
// It touches neither the lifecycle engine nor the store and carries no
// delivery guarantee beyond best-effort.
func (h *Hub) Typing(sub *Subscriber, roomID string, isTyping bool) *errs.CustomError {
	if !h.registry.Member(roomID, sub.ID) {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if decision := h.gate.Admit(sub.Identity, gate.ClassTyping); !decision.Allowed {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	event := &Event{
		Type: EventTypingState,
		TypingState: &TypingStatePayload{
			RoomID:   roomID,
			Identity: sub.Identity,
			IsTyping: isTyping,
		},
	}

	h.bus.Publish(roomID, event, sub.ID)

	return nil
}

// MarkRead is the recipient-side acknowledgement path, the only caller that
// ever advances delivered/read. Messages that cannot advance are skipped; if
// nothing changed, nothing is published.
func (h *Hub) MarkRead(sub *Subscriber, roomID string, messageIDs []string, status DeliveryStatus) *errs.CustomError {
	if !h.registry.Member(roomID, sub.ID) {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	event := h.lifecycle.Advance(roomID, messageIDs, status)
	if event == nil {
		return nil
	}

	for _, id := range event.MessageStatus.MessageIDs {
		if updated := h.lifecycle.Get(id); updated != nil {
			h.persistIntent(sub, updated, false)
		}
	}

	h.bus.Publish(roomID, event, "")

	return nil
}

// SendError surfaces an operation failure to the originating connection only.
// Errors are never broadcast to other room members.
func (h *Hub) SendError(sub *Subscriber, customErr *errs.CustomError) {
	h.bus.Send(sub, &Event{
		Type:  EventError,
		Error: &ErrorPayload{Code: customErr.Code, Message: customErr.Message},
	})
}

// persistIntent hands a message snapshot to the store in the background.
// Fan-out proceeds optimistically; a persistence failure is logged and, for
// creates, surfaced to the sender as a soft warning while the message stays
// visible.
func (h *Hub) persistIntent(sub *Subscriber, msg *Message, isCreate bool) {
	if h.store == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		var err error
		if isCreate {
			err = h.store.PersistMessage(ctx, msg)
		} else {
			err = h.store.UpdateMessage(ctx, msg)
		}

		if err != nil {
			h.logger.Error().
				Str("message_id", msg.ID).
				Str("room_id", msg.RoomID).
				Err(err).
				Msg("Persist intent failed; message remains visible.")

			if isCreate {
				h.SendError(sub, errs.NewError(errs.ErrPersistenceDegraded))
			}
		}
	}()
}
