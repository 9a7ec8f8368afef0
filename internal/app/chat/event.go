/*
Package chat contains the real-time messaging coordination core.

This file defines the outbound event vocabulary as a tagged variant: one type
per event kind with a fixed field set, so receivers can handle every kind
exhaustively instead of probing loosely-typed payloads.
*/
package chat

import "encoding/json"

// EventType tags an outbound event variant.
type EventType string

const (
	EventMessageCreated  EventType = "message-created"
	EventMessageEdited   EventType = "message-edited"
	EventMessageDeleted  EventType = "message-deleted"
	EventReactionUpdated EventType = "reaction-updated"
	EventMessageStatus   EventType = "message-status"
	EventTypingState     EventType = "typing-state"

	// EventError is delivered only to the originating connection, never fanned
	// out to a room.
	EventError EventType = "error"
)

// Event is the envelope fanned out to room subscribers. Exactly one payload
// field is set, matching Type.
type Event struct {
	Type EventType `json:"type"`

	MessageCreated  *MessageCreatedPayload  `json:"messageCreated,omitempty"`
	MessageEdited   *MessageEditedPayload   `json:"messageEdited,omitempty"`
	MessageDeleted  *MessageDeletedPayload  `json:"messageDeleted,omitempty"`
	ReactionUpdated *ReactionUpdatedPayload `json:"reactionUpdated,omitempty"`
	MessageStatus   *MessageStatusPayload   `json:"messageStatus,omitempty"`
	TypingState     *TypingStatePayload     `json:"typingState,omitempty"`
	Error           *ErrorPayload           `json:"error,omitempty"`
}

// MessageCreatedPayload carries the authoritative message for a new send.
// CorrelationToken echoes the client-supplied token so the sender can replace
// its optimistic local copy; it is meaningful only to the originator.
type MessageCreatedPayload struct {
	Message          *Message `json:"message"`
	CorrelationToken string   `json:"correlationToken,omitempty"`
}

// MessageEditedPayload carries the full post-edit message state.
type MessageEditedPayload struct {
	Message *Message `json:"message"`
}

// MessageDeletedPayload references a tombstoned message by identifier.
type MessageDeletedPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

// ReactionUpdatedPayload carries the complete reaction list after a toggle.
// Receivers overwrite rather than increment, which keeps redelivery harmless.
type ReactionUpdatedPayload struct {
	RoomID    string     `json:"roomId"`
	MessageID string     `json:"messageId"`
	Reactions []Reaction `json:"reactions"`
}

// MessageStatusPayload advances delivery status for a batch of messages.
type MessageStatusPayload struct {
	RoomID     string         `json:"roomId"`
	MessageIDs []string       `json:"messageIds"`
	Status     DeliveryStatus `json:"status"`
}

// TypingStatePayload is the ephemeral typing indicator. It bypasses the
// lifecycle engine and any persistence; delivery is best-effort only.
type TypingStatePayload struct {
	RoomID   string `json:"roomId"`
	Identity string `json:"identity"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload surfaces an operation failure back to the originating connection.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Encode marshals the event for the wire. A failure here is a programming
// error in the payload types, so the bus treats it as fatal for the publish.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent unmarshals a wire frame back into an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
