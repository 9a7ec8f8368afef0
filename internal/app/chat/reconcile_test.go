package chat

import (
	"reflect"
	"testing"
	"time"
)

func createdEvent(id, roomID, sender, content, token string, ts time.Time) *Event {
	return &Event{
		Type: EventMessageCreated,
		MessageCreated: &MessageCreatedPayload{
			Message: &Message{
				ID:        id,
				RoomID:    roomID,
				Sender:    sender,
				Content:   content,
				Kind:      KindText,
				Timestamp: ts,
				Status:    StatusSent,
				Reactions: []Reaction{},
			},
			CorrelationToken: token,
		},
	}
}

func TestOptimisticSendReconciledInPlace(t *testing.T) {
	tl := NewTimeline()

	local := tl.AppendLocal("t1", "r1", "alice", "hi", KindText, "abc")
	if local.Status != StatusPending {
		t.Fatalf("local message status = %q, want pending", local.Status)
	}

	tl.Apply(createdEvent("m42", "r1", "alice", "hi", "abc", time.Now()))

	msgs := tl.Messages()
	if len(msgs) != 1 {
		t.Fatalf("timeline holds %d messages, want exactly 1", len(msgs))
	}
	if msgs[0].ID != "m42" {
		t.Errorf("id = %q, want m42", msgs[0].ID)
	}
	if msgs[0].Status != StatusSent {
		t.Errorf("status = %q, want sent", msgs[0].Status)
	}
}

func TestReconciliationKeepsListPosition(t *testing.T) {
	tl := NewTimeline()

	base := time.Now()
	tl.Apply(createdEvent("m1", "r1", "bob", "earlier", "", base.Add(-time.Minute)))
	tl.AppendLocal("t1", "r1", "alice", "mine", KindText, "tok")
	tl.Apply(createdEvent("m2", "r1", "bob", "later", "", base.Add(time.Minute)))

	tl.Apply(createdEvent("m99", "r1", "alice", "mine", "tok", base))

	msgs := tl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("timeline holds %d messages, want 3", len(msgs))
	}
	if msgs[1].ID != "m99" {
		t.Errorf("reconciled message moved: order is %q, %q, %q", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestForeignMessagesInsertChronologically(t *testing.T) {
	tl := NewTimeline()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tl.Apply(createdEvent("m3", "r1", "bob", "three", "", base.Add(3*time.Second)))
	tl.Apply(createdEvent("m1", "r1", "bob", "one", "", base.Add(1*time.Second)))
	tl.Apply(createdEvent("m2", "r1", "bob", "two", "", base.Add(2*time.Second)))

	// Same timestamp: ties break by identifier.
	tl.Apply(createdEvent("m2b", "r1", "carol", "two-b", "", base.Add(2*time.Second)))

	var ids []string
	for _, m := range tl.Messages() {
		ids = append(ids, m.ID)
	}

	want := []string{"m1", "m2", "m2b", "m3"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	tl := NewTimeline()

	created := createdEvent("m1", "r1", "bob", "hi", "", time.Now())
	tl.Apply(created)
	tl.Apply(created)

	if tl.Len() != 1 {
		t.Fatalf("redelivered create duplicated the message: len = %d", tl.Len())
	}

	reaction := &Event{
		Type: EventReactionUpdated,
		ReactionUpdated: &ReactionUpdatedPayload{
			RoomID:    "r1",
			MessageID: "m1",
			Reactions: []Reaction{{Emoji: "👍", Users: []string{"alice"}}},
		},
	}
	tl.Apply(reaction)
	first := tl.Messages()
	tl.Apply(reaction)
	second := tl.Messages()

	if !reflect.DeepEqual(first, second) {
		t.Error("second apply of the same reaction event changed state")
	}
}

func TestEditAndDeleteApplyInPlace(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(createdEvent("m1", "r1", "bob", "original", "", time.Now()))

	editedAt := time.Now()
	tl.Apply(&Event{
		Type: EventMessageEdited,
		MessageEdited: &MessageEditedPayload{
			Message: &Message{
				ID: "m1", RoomID: "r1", Sender: "bob", Content: "fixed",
				Kind: KindText, Status: StatusSent, Edited: true, EditedAt: &editedAt,
				Reactions: []Reaction{},
			},
		},
	})

	msgs := tl.Messages()
	if msgs[0].Content != "fixed" || !msgs[0].Edited {
		t.Errorf("edit not applied: %+v", msgs[0])
	}

	tl.Apply(&Event{
		Type:           EventMessageDeleted,
		MessageDeleted: &MessageDeletedPayload{RoomID: "r1", MessageID: "m1"},
	})

	msgs = tl.Messages()
	if !msgs[0].Deleted || msgs[0].Content != "" {
		t.Errorf("delete not applied: %+v", msgs[0])
	}
}

func TestUnknownIdentifierDiscarded(t *testing.T) {
	tl := NewTimeline()

	tl.Apply(&Event{
		Type:          EventMessageEdited,
		MessageEdited: &MessageEditedPayload{Message: &Message{ID: "ghost", Content: "x"}},
	})
	tl.Apply(&Event{
		Type:           EventMessageDeleted,
		MessageDeleted: &MessageDeletedPayload{RoomID: "r1", MessageID: "ghost"},
	})
	tl.Apply(&Event{
		Type:            EventReactionUpdated,
		ReactionUpdated: &ReactionUpdatedPayload{RoomID: "r1", MessageID: "ghost"},
	})

	if tl.Len() != 0 {
		t.Errorf("events for unknown identifiers must be discarded, len = %d", tl.Len())
	}
}

func TestStatusEventAdvancesMonotonically(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(createdEvent("m1", "r1", "bob", "hi", "", time.Now()))

	tl.Apply(&Event{
		Type:          EventMessageStatus,
		MessageStatus: &MessageStatusPayload{RoomID: "r1", MessageIDs: []string{"m1"}, Status: StatusRead},
	})
	tl.Apply(&Event{
		Type:          EventMessageStatus,
		MessageStatus: &MessageStatusPayload{RoomID: "r1", MessageIDs: []string{"m1"}, Status: StatusDelivered},
	})

	if got := tl.Messages()[0].Status; got != StatusRead {
		t.Errorf("status regressed to %q, want read", got)
	}
}

func TestTombstoneSurvivesRedeliveredEvents(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(createdEvent("m1", "r1", "bob", "original", "", time.Now()))

	editedAt := time.Now()
	edit := &Event{
		Type: EventMessageEdited,
		MessageEdited: &MessageEditedPayload{
			Message: &Message{
				ID: "m1", RoomID: "r1", Sender: "bob", Content: "fixed",
				Kind: KindText, Status: StatusSent, Edited: true, EditedAt: &editedAt,
				Reactions: []Reaction{},
			},
		},
	}
	tl.Apply(edit)
	tl.Apply(&Event{
		Type:           EventMessageDeleted,
		MessageDeleted: &MessageDeletedPayload{RoomID: "r1", MessageID: "m1"},
	})

	// At-least-once delivery can replay the edit after the delete; the
	// tombstone must hold.
	tl.Apply(edit)

	msgs := tl.Messages()
	if !msgs[0].Deleted || msgs[0].Content != "" {
		t.Fatalf("redelivered edit resurrected tombstone: %+v", msgs[0])
	}

	// A replayed create for the same identifier must not resurrect it either.
	tl.Apply(createdEvent("m1", "r1", "bob", "original", "", time.Now()))

	msgs = tl.Messages()
	if len(msgs) != 1 || !msgs[0].Deleted || msgs[0].Content != "" {
		t.Fatalf("redelivered create resurrected tombstone: %+v", msgs[0])
	}
}
