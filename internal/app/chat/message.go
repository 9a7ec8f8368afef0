/*
Package chat contains the real-time messaging coordination core: room
subscription tracking, event fan-out, the message lifecycle state machine,
and the client-side reconciliation of optimistic sends.

This file defines the Message entity, its delivery status machine, reactions,
and the message kind vocabulary.
*/
package chat

import (
	"strings"
	"time"
)

const (
	// MaxContentBytes is the maximum allowed size (in bytes) for message content.
	MaxContentBytes = 5000
)

// Kind classifies a message payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
	KindGif   Kind = "gif"
	KindVoice Kind = "voice"
)

// Valid reports whether k is a known message kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile, KindGif, KindVoice:
		return true
	}
	return false
}

// DeliveryStatus tracks how far a message has progressed toward its recipients.
// The order is pending, sent, delivered, read; it only ever advances.
type DeliveryStatus string

const (
	// StatusPending exists only on the client side, between the local send and
	// the server echo. The server assigns sent the instant it accepts a message.
	StatusPending DeliveryStatus = "pending"

	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// rank orders delivery statuses for the monotonic-advance check.
func (s DeliveryStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return -1
}

// Reaction is one emoji applied to a message by a set of identities.
// An identity appears at most once per emoji; an entry whose user set
// becomes empty is removed from the message.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Message is the central entity of the coordination core.
// The identifier is assigned once and never reused. A deleted message keeps
// its identifier and metadata as a tombstone so delete events stay referable,
// but accepts no further edits, reactions, or status transitions.
type Message struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"roomId"`
	Sender    string         `json:"sender"`
	Content   string         `json:"content"`
	Kind      Kind           `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Status    DeliveryStatus `json:"status"`
	Edited    bool           `json:"edited"`
	EditedAt  *time.Time     `json:"editedAt,omitempty"`
	Deleted   bool           `json:"deleted,omitempty"`
	ReplyTo   string         `json:"replyTo,omitempty"`
	Reactions []Reaction     `json:"reactions"`
}

// advanceStatus moves the delivery status forward. Setting an earlier or equal
// status after a later one is a no-op; the return value reports whether the
// message changed.
func (m *Message) advanceStatus(next DeliveryStatus) bool {
	if next.rank() <= m.Status.rank() {
		return false
	}
	m.Status = next
	return true
}

// toggleReaction flips identity's reaction with the given emoji as a single
// state transition: present removes (dropping an emptied entry), absent adds.
func (m *Message) toggleReaction(identity, emoji string) {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}

		for j, user := range m.Reactions[i].Users {
			if user == identity {
				m.Reactions[i].Users = append(m.Reactions[i].Users[:j], m.Reactions[i].Users[j+1:]...)
				if len(m.Reactions[i].Users) == 0 {
					m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				}
				return
			}
		}

		m.Reactions[i].Users = append(m.Reactions[i].Users, identity)
		return
	}

	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, Users: []string{identity}})
}

// clone returns a deep copy safe to hand outside the lifecycle engine's lock.
func (m *Message) clone() *Message {
	c := *m

	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}

	c.Reactions = make([]Reaction, len(m.Reactions))
	for i, r := range m.Reactions {
		c.Reactions[i] = Reaction{Emoji: r.Emoji, Users: append([]string(nil), r.Users...)}
	}

	return &c
}

// validContent reports whether content is non-empty after trimming and within the size limit.
func validContent(content string) bool {
	return strings.TrimSpace(content) != "" && len(content) <= MaxContentBytes
}
