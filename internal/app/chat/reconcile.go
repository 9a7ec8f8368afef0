/*
Package chat contains the real-time messaging coordination core.

This file defines the Timeline, the client-side reconciliation engine. It
merges locally-created optimistic messages with the authoritative events the
server fans back, keyed by correlation token, so a send shows up instantly and
is replaced in place (no duplicate, no flicker) when its echo arrives.
*/
package chat

import (
	"sync"
	"time"
)

// Timeline holds one room's ordered message sequence on the client side.
// Every apply is keyed by identifier and is a full-state overwrite, so
// applying the same event twice leaves state unchanged.
type Timeline struct {
	mu sync.Mutex

	// order holds messages chronologically; entries are pointers so an
	// in-place replacement keeps the list position.
	order []*Message

	// byID indexes the current entries by message identifier.
	byID map[string]*Message

	// pending maps a correlation token to the optimistic local message
	// awaiting its authoritative echo.
	pending map[string]*Message
}

// NewTimeline constructs an empty client-side timeline for one room.
func NewTimeline() *Timeline {
	return &Timeline{
		byID:    make(map[string]*Message),
		pending: make(map[string]*Message),
	}
}

// AppendLocal records an optimistic message for a send in flight, shown
// immediately with status pending under a client-generated temporary
// identifier. The correlation token links it to the eventual server echo.
func (t *Timeline) AppendLocal(tempID, roomID, sender, content string, kind Kind, correlationToken string) *Message {
	msg := &Message{
		ID:        tempID,
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Kind:      kind,
		Timestamp: time.Now(),
		Status:    StatusPending,
		Reactions: []Reaction{},
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.order = append(t.order, msg)
	t.byID[tempID] = msg
	t.pending[correlationToken] = msg

	return msg.clone()
}

// Apply merges one event into the timeline. Events referencing identifiers
// the timeline does not know (history not yet loaded) are discarded.
// Typing state carries no message and is ignored here; the presentation layer
// consumes it directly.
func (t *Timeline) Apply(event *Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Type {
	case EventMessageCreated:
		if event.MessageCreated != nil {
			t.applyCreated(event.MessageCreated)
		}

	case EventMessageEdited:
		if event.MessageEdited != nil && event.MessageEdited.Message != nil {
			t.applyEdited(event.MessageEdited.Message)
		}

	case EventMessageDeleted:
		if event.MessageDeleted != nil {
			t.applyDeleted(event.MessageDeleted.MessageID)
		}

	case EventReactionUpdated:
		if event.ReactionUpdated != nil {
			t.applyReactions(event.ReactionUpdated)
		}

	case EventMessageStatus:
		if event.MessageStatus != nil {
			t.applyStatus(event.MessageStatus)
		}

	case EventTypingState, EventError:
		// Ephemeral, never part of the message sequence.
	}
}

// applyCreated resolves an authoritative message-created event. A matching
// pending entry is overwritten in its existing list position; a foreign
// message is inserted in chronological order; a known identifier is a
// redelivery and overwrites idempotently.
func (t *Timeline) applyCreated(payload *MessageCreatedPayload) {
	authoritative := payload.Message
	if authoritative == nil {
		return
	}

	if payload.CorrelationToken != "" {
		if local, ok := t.pending[payload.CorrelationToken]; ok {
			delete(t.pending, payload.CorrelationToken)
			delete(t.byID, local.ID)

			// Same slot in order: overwrite through the shared pointer.
			*local = *authoritative.clone()
			t.byID[local.ID] = local
			return
		}
	}

	if existing, ok := t.byID[authoritative.ID]; ok {
		if !existing.Deleted {
			*existing = *authoritative.clone()
		}
		return
	}

	t.insertChronological(authoritative.clone())
}

// insertChronological places msg by timestamp, breaking ties by identifier.
func (t *Timeline) insertChronological(msg *Message) {
	pos := len(t.order)
	for i, existing := range t.order {
		if existing.Timestamp.After(msg.Timestamp) ||
			(existing.Timestamp.Equal(msg.Timestamp) && existing.ID > msg.ID) {
			pos = i
			break
		}
	}

	t.order = append(t.order, nil)
	copy(t.order[pos+1:], t.order[pos:])
	t.order[pos] = msg
	t.byID[msg.ID] = msg
}

func (t *Timeline) applyEdited(authoritative *Message) {
	existing, ok := t.byID[authoritative.ID]
	if !ok || existing.Deleted {
		// A tombstoned entry stays gone; a redelivered or reordered edit
		// must not resurrect it.
		return
	}
	*existing = *authoritative.clone()
}

func (t *Timeline) applyDeleted(messageID string) {
	existing, ok := t.byID[messageID]
	if !ok {
		return
	}
	existing.Deleted = true
	existing.Content = ""
	existing.Reactions = []Reaction{}
}

func (t *Timeline) applyReactions(payload *ReactionUpdatedPayload) {
	existing, ok := t.byID[payload.MessageID]
	if !ok || existing.Deleted {
		return
	}

	existing.Reactions = make([]Reaction, len(payload.Reactions))
	for i, r := range payload.Reactions {
		existing.Reactions[i] = Reaction{Emoji: r.Emoji, Users: append([]string(nil), r.Users...)}
	}
}

func (t *Timeline) applyStatus(payload *MessageStatusPayload) {
	for _, id := range payload.MessageIDs {
		if existing, ok := t.byID[id]; ok && !existing.Deleted {
			existing.advanceStatus(payload.Status)
		}
	}
}

// Messages returns a snapshot of the timeline in display order.
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.order))
	for i, msg := range t.order {
		out[i] = *msg.clone()
	}
	return out
}

// Len returns the number of messages currently held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
