package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/gate"
)

// recordingStore captures persist intents for assertions.
type recordingStore struct {
	mu       sync.Mutex
	persists []string
	updates  []string
	fail     bool
	done     chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{done: make(chan struct{}, 16)}
}

func (s *recordingStore) PersistMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	s.persists = append(s.persists, msg.ID)
	fail := s.fail
	s.mu.Unlock()
	s.done <- struct{}{}

	if fail {
		return errors.New("store unavailable")
	}
	return nil
}

func (s *recordingStore) UpdateMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	s.updates = append(s.updates, msg.ID)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func waitEvent(t *testing.T, sub *Subscriber, timeout time.Duration) *Event {
	t.Helper()

	select {
	case frame, ok := <-sub.Outbound():
		if !ok {
			t.Fatal("outbound queue closed while waiting for an event")
		}
		event, err := DecodeEvent(frame)
		if err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	case <-time.After(timeout):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func assertNoEvent(t *testing.T, sub *Subscriber) {
	t.Helper()

	select {
	case frame := <-sub.Outbound():
		t.Fatalf("expected silence, got frame %s", frame)
	default:
	}
}

func TestSendMessageFansOutToRoom(t *testing.T) {
	store := newRecordingStore()
	hub := NewHub(gate.New(), store, nil)

	alice := NewSubscriber("c-alice", "alice")
	bob := NewSubscriber("c-bob", "bob")
	carol := NewSubscriber("c-carol", "carol")

	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(bob, "r1")
	hub.JoinRoom(carol, "r2")

	if customErr := hub.SendMessage(alice, "r1", "hi", KindText, "", "tok-1"); customErr != nil {
		t.Fatalf("send failed: %v", customErr)
	}

	// Bob receives the authoritative message.
	event := waitEvent(t, bob, time.Second)
	if event.Type != EventMessageCreated {
		t.Fatalf("bob got %q, want message-created", event.Type)
	}
	msg := event.MessageCreated.Message
	if msg.Sender != "alice" || msg.Content != "hi" || msg.Status != StatusSent {
		t.Errorf("bob received wrong message: %+v", msg)
	}

	// The sender's echo carries the correlation token.
	echo := waitEvent(t, alice, time.Second)
	if echo.MessageCreated.CorrelationToken != "tok-1" {
		t.Errorf("sender echo token = %q, want tok-1", echo.MessageCreated.CorrelationToken)
	}

	// Carol is in another room and receives nothing.
	assertNoEvent(t, carol)

	// The persist intent fired exactly once.
	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("persist intent never reached the store")
	}
}

func TestRateGateRejectsBeforeLifecycle(t *testing.T) {
	g := gate.New(gate.WithLimits(map[gate.Class]gate.Limit{
		gate.ClassSendMessage: {Count: 1, Window: time.Minute},
	}))
	hub := NewHub(g, nil, nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(bob, "r1")

	if customErr := hub.SendMessage(alice, "r1", "first", KindText, "", ""); customErr != nil {
		t.Fatalf("first send failed: %v", customErr)
	}
	waitEvent(t, bob, time.Second)

	customErr := hub.SendMessage(alice, "r1", "second", KindText, "", "")
	if customErr == nil || customErr.Code != errs.ErrRateLimitExceeded {
		t.Fatal("second send should be rejected by the gate")
	}

	// The rejected operation never reached fan-out.
	assertNoEvent(t, bob)
}

func TestPersistFailureSurfacesSoftWarningToSenderOnly(t *testing.T) {
	store := newRecordingStore()
	store.fail = true
	hub := NewHub(gate.New(), store, nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(bob, "r1")

	if customErr := hub.SendMessage(alice, "r1", "hi", KindText, "", "tok"); customErr != nil {
		t.Fatalf("send failed: %v", customErr)
	}

	<-store.done

	// Alice gets the echo first, then the soft warning.
	var sawWarning bool
	deadline := time.After(2 * time.Second)
	for !sawWarning {
		select {
		case frame := <-alice.Outbound():
			event, err := DecodeEvent(frame)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if event.Type == EventError && event.Error.Code == errs.ErrPersistenceDegraded {
				sawWarning = true
			}
		case <-deadline:
			t.Fatal("sender never received the persistence warning")
		}
	}

	// Bob still received the message and no warning: the message is not retracted.
	event := waitEvent(t, bob, time.Second)
	if event.Type != EventMessageCreated {
		t.Fatalf("bob got %q, want message-created", event.Type)
	}
	assertNoEvent(t, bob)
}

func TestTypingBypassesLifecycleAndExcludesSender(t *testing.T) {
	hub := NewHub(gate.New(), nil, nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(bob, "r1")

	if customErr := hub.Typing(alice, "r1", true); customErr != nil {
		t.Fatalf("typing failed: %v", customErr)
	}

	event := waitEvent(t, bob, time.Second)
	if event.Type != EventTypingState || !event.TypingState.IsTyping || event.TypingState.Identity != "alice" {
		t.Errorf("bob got wrong typing event: %+v", event)
	}

	assertNoEvent(t, alice)
}

func TestDisconnectPurgesSubscriptions(t *testing.T) {
	hub := NewHub(gate.New(), nil, nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(alice, "r2")
	hub.JoinRoom(bob, "r1")

	hub.Disconnect(alice)

	if customErr := hub.SendMessage(bob, "r1", "anyone there?", KindText, "", ""); customErr != nil {
		t.Fatalf("send failed: %v", customErr)
	}

	// Bob gets his own echo; the publish found exactly one live subscriber.
	waitEvent(t, bob, time.Second)

	for _, sub := range hub.Registry().Subscribers("r1") {
		if sub.ID == "c1" {
			t.Error("r1 still lists the disconnected connection")
		}
	}
	if subs := hub.Registry().Subscribers("r2"); len(subs) != 0 {
		t.Errorf("r2 should be evicted after its only subscriber left, has %d", len(subs))
	}
}

func TestEndToEndEditDeleteReactFlow(t *testing.T) {
	hub := NewHub(gate.New(), nil, nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(alice, "r1")
	hub.JoinRoom(bob, "r1")

	hub.SendMessage(alice, "r1", "hello", KindText, "", "tok")
	created := waitEvent(t, bob, time.Second)
	id := created.MessageCreated.Message.ID
	waitEvent(t, alice, time.Second) // drain echo

	// Bob reacts; both sides see the full reaction list.
	if customErr := hub.React(bob, id, "👍"); customErr != nil {
		t.Fatalf("react failed: %v", customErr)
	}
	reaction := waitEvent(t, alice, time.Second)
	if reaction.Type != EventReactionUpdated || len(reaction.ReactionUpdated.Reactions) != 1 {
		t.Fatalf("wrong reaction event: %+v", reaction)
	}
	waitEvent(t, bob, time.Second)

	// Bob cannot delete alice's message.
	if customErr := hub.DeleteMessage(bob, id); customErr == nil || customErr.Code != errs.ErrNotMessageOwner {
		t.Fatal("non-owner delete should be rejected")
	}

	// Alice deletes; the tombstone event references the identifier.
	if customErr := hub.DeleteMessage(alice, id); customErr != nil {
		t.Fatalf("delete failed: %v", customErr)
	}
	deleted := waitEvent(t, bob, time.Second)
	if deleted.Type != EventMessageDeleted || deleted.MessageDeleted.MessageID != id {
		t.Fatalf("wrong deletion event: %+v", deleted)
	}

	// Edits after deletion fail and fan nothing out.
	if customErr := hub.EditMessage(alice, id, "resurrect"); customErr == nil || customErr.Code != errs.ErrMessageNotFound {
		t.Fatal("edit of deleted message should be not found")
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	hub := NewHub(gate.New(), newRecordingStore(), nil)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	hub.JoinRoom(bob, "r1")

	customErr := hub.SendMessage(alice, "r1", "hi", KindText, "", "")
	if customErr == nil || customErr.Code != errs.ErrRoomNotFound {
		t.Fatalf("send without join should be rejected, got %v", customErr)
	}
	assertNoEvent(t, bob)

	if customErr := hub.Typing(alice, "r1", true); customErr == nil || customErr.Code != errs.ErrRoomNotFound {
		t.Fatal("typing without join should be rejected")
	}
	if customErr := hub.MarkRead(alice, "r1", []string{"m1"}, StatusRead); customErr == nil || customErr.Code != errs.ErrRoomNotFound {
		t.Fatal("mark-read without join should be rejected")
	}
}

// recordingPresence captures presence transitions for assertions.
type recordingPresence struct {
	mu     sync.Mutex
	joins  []string
	leaves []string
	signal chan string
}

func newRecordingPresence() *recordingPresence {
	return &recordingPresence{signal: make(chan string, 16)}
}

func (p *recordingPresence) Join(ctx context.Context, roomID, identity string) error {
	p.mu.Lock()
	p.joins = append(p.joins, roomID+"|"+identity)
	p.mu.Unlock()
	p.signal <- "join:" + roomID + "|" + identity
	return nil
}

func (p *recordingPresence) Leave(ctx context.Context, roomID, identity string) error {
	p.mu.Lock()
	p.leaves = append(p.leaves, roomID+"|"+identity)
	p.mu.Unlock()
	p.signal <- "leave:" + roomID + "|" + identity
	return nil
}

func (p *recordingPresence) waitSignal(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-p.signal:
		if got != want {
			t.Fatalf("presence transition = %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for presence transition %q", want)
	}
}

func TestPresenceOutlivesOneOfTwoConnections(t *testing.T) {
	presence := newRecordingPresence()
	hub := NewHub(gate.New(), newRecordingStore(), presence)

	tab1 := NewSubscriber("c1", "alice")
	tab2 := NewSubscriber("c2", "alice")

	hub.JoinRoom(tab1, "r1")
	presence.waitSignal(t, "join:r1|alice")
	hub.JoinRoom(tab2, "r1")
	presence.waitSignal(t, "join:r1|alice")

	// The identity still holds a connection in the room; no leave fires.
	hub.Disconnect(tab1)

	// The last connection leaving clears the identity.
	hub.Disconnect(tab2)
	presence.waitSignal(t, "leave:r1|alice")

	presence.mu.Lock()
	defer presence.mu.Unlock()
	if len(presence.leaves) != 1 {
		t.Fatalf("leaves = %v, want exactly one", presence.leaves)
	}
}
