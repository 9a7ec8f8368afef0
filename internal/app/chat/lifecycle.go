/*
Package chat contains the real-time messaging coordination core.

This file defines the Lifecycle engine, the authoritative owner of message
state transitions. Every successful mutation updates the in-memory table and
returns the event for the caller to hand to the Bus; the engine never
publishes itself, keeping its transitions pure and directly testable.
*/
package chat

import (
	"sync"
	"time"

	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/randx"
)

// Lifecycle owns the authoritative state of messages and their reactions.
type Lifecycle struct {
	mu       sync.Mutex
	messages map[string]*Message

	now func() time.Time
}

// NewLifecycle constructs an empty Lifecycle engine.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		messages: make(map[string]*Message),
		now:      time.Now,
	}
}

// Create accepts a send, assigning a fresh identifier and status sent.
// The pending status is a client-local concept: the instant the server accepts
// a message it is sent. The returned event carries the client's correlation
// token so the sender can reconcile its optimistic copy.
func (l *Lifecycle) Create(roomID, sender, content string, kind Kind, replyTo, correlationToken string) (*Event, *errs.CustomError) {
	if roomID == "" || sender == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if !validContent(content) {
		if len(content) > MaxContentBytes {
			return nil, errs.NewError(errs.ErrMessageContentTooLong)
		}
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if kind == "" {
		kind = KindText
	}
	if !kind.Valid() {
		return nil, errs.NewError(errs.ErrMessageKindInvalid)
	}

	msg := &Message{
		ID:        randx.MessageID(),
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Kind:      kind,
		Timestamp: l.now(),
		Status:    StatusSent,
		ReplyTo:   replyTo,
		Reactions: []Reaction{},
	}

	l.mu.Lock()
	l.messages[msg.ID] = msg
	snapshot := msg.clone()
	l.mu.Unlock()

	return &Event{
		Type: EventMessageCreated,
		MessageCreated: &MessageCreatedPayload{
			Message:          snapshot,
			CorrelationToken: correlationToken,
		},
	}, nil
}

// Edit replaces the content of a message the editor owns. A deleted message is
// treated as gone for mutation purposes.
func (l *Lifecycle) Edit(messageID, editorIdentity, newContent string) (*Event, *errs.CustomError) {
	if !validContent(newContent) {
		if len(newContent) > MaxContentBytes {
			return nil, errs.NewError(errs.ErrMessageContentTooLong)
		}
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.messages[messageID]
	if !ok || msg.Deleted {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}
	if msg.Sender != editorIdentity {
		return nil, errs.NewError(errs.ErrNotMessageOwner)
	}

	now := l.now()
	msg.Content = newContent
	msg.Edited = true
	msg.EditedAt = &now

	return &Event{
		Type:          EventMessageEdited,
		MessageEdited: &MessageEditedPayload{Message: msg.clone()},
	}, nil
}

// Remove tombstones a message the requester owns: the content is cleared but
// the identifier and metadata survive so the delete event stays referable.
// Deleting an already-deleted message reports not found, so the deletion event
// fans out exactly once.
func (l *Lifecycle) Remove(messageID, requesterIdentity string) (*Event, *errs.CustomError) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.messages[messageID]
	if !ok || msg.Deleted {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}
	if msg.Sender != requesterIdentity {
		return nil, errs.NewError(errs.ErrNotMessageOwner)
	}

	msg.Deleted = true
	msg.Content = ""
	msg.Reactions = []Reaction{}

	return &Event{
		Type:           EventMessageDeleted,
		MessageDeleted: &MessageDeletedPayload{RoomID: msg.RoomID, MessageID: msg.ID},
	}, nil
}

// React toggles identity's emoji reaction on a message as one atomic
// transition: removing the identity and dropping an emptied emoji entry happen
// under the same lock hold as adding would.
func (l *Lifecycle) React(messageID, identity, emoji string) (*Event, *errs.CustomError) {
	if emoji == "" || identity == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.messages[messageID]
	if !ok || msg.Deleted {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}

	msg.toggleReaction(identity, emoji)

	snapshot := msg.clone()

	return &Event{
		Type: EventReactionUpdated,
		ReactionUpdated: &ReactionUpdatedPayload{
			RoomID:    msg.RoomID,
			MessageID: msg.ID,
			Reactions: snapshot.Reactions,
		},
	}, nil
}

// Advance moves delivery status forward for the given messages; the
// recipient-side acknowledgement path is the only caller. Regressions and
// deleted messages are skipped silently. The returned event covers only the
// messages that actually changed, and is nil when none did.
func (l *Lifecycle) Advance(roomID string, messageIDs []string, status DeliveryStatus) *Event {
	if status != StatusDelivered && status != StatusRead {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	changed := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		msg, ok := l.messages[id]
		if !ok || msg.Deleted || msg.RoomID != roomID {
			continue
		}
		if msg.advanceStatus(status) {
			changed = append(changed, id)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	return &Event{
		Type: EventMessageStatus,
		MessageStatus: &MessageStatusPayload{
			RoomID:     roomID,
			MessageIDs: changed,
			Status:     status,
		},
	}
}

// Get returns a snapshot of the message, or nil if unknown.
func (l *Lifecycle) Get(messageID string) *Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.messages[messageID]
	if !ok {
		return nil
	}
	return msg.clone()
}
