package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func typingEvent(roomID, identity string) *Event {
	return &Event{
		Type:        EventTypingState,
		TypingState: &TypingStatePayload{RoomID: roomID, Identity: identity, IsTyping: true},
	}
}

func drainOne(t *testing.T, sub *Subscriber) *Event {
	t.Helper()

	select {
	case frame := <-sub.Outbound():
		event, err := DecodeEvent(frame)
		if err != nil {
			t.Fatalf("decode delivered frame: %v", err)
		}
		return event
	default:
		t.Fatal("expected a delivered event, queue is empty")
		return nil
	}
}

func TestPublishDeliversToAllButExcluded(t *testing.T) {
	r := NewRegistry()
	b := NewBus(r)

	alice := NewSubscriber("c1", "alice")
	bob := NewSubscriber("c2", "bob")
	carol := NewSubscriber("c3", "carol")

	r.Join("r1", alice)
	r.Join("r1", bob)
	// carol is not subscribed to r1

	delivered := b.Publish("r1", typingEvent("r1", "alice"), "c1")
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	event := drainOne(t, bob)
	if event.Type != EventTypingState || event.TypingState.Identity != "alice" {
		t.Errorf("bob received wrong event: %+v", event)
	}

	select {
	case <-alice.Outbound():
		t.Error("excluded originator received its own event")
	default:
	}

	select {
	case <-carol.Outbound():
		t.Error("carol is not subscribed and must receive nothing")
	default:
	}
}

func TestPublishStalledSubscriberDoesNotBlock(t *testing.T) {
	r := NewRegistry()
	b := NewBus(r)

	stalled := NewSubscriber("slow", "s")
	healthy := NewSubscriber("fast", "f")

	r.Join("r1", stalled)
	r.Join("r1", healthy)

	// Saturate the stalled subscriber's queue; it never drains.
	for i := 0; i < subscriberSendBuffer; i++ {
		b.Publish("r1", typingEvent("r1", "x"), "fast")
	}

	done := make(chan int, 1)
	go func() {
		done <- b.Publish("r1", typingEvent("r1", "y"), "")
	}()

	select {
	case delivered := <-done:
		// The healthy subscriber got it; the stalled one lost exactly this delivery.
		if delivered != 1 {
			t.Fatalf("delivered = %d, want 1 (healthy only)", delivered)
		}
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
}

func TestPublishToClosedSubscriberIsDropped(t *testing.T) {
	r := NewRegistry()
	b := NewBus(r)

	closing := NewSubscriber("c1", "gone")
	r.Join("r1", closing)
	closing.Close()

	// The connection is mid-teardown; this single delivery is discarded
	// without failing the publish call.
	if delivered := b.Publish("r1", typingEvent("r1", "x"), ""); delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
}

func TestPerConnectionEnqueueOrder(t *testing.T) {
	r := NewRegistry()
	b := NewBus(r)

	sub := NewSubscriber("c1", "alice")
	r.Join("r1", sub)

	for _, identity := range []string{"first", "second", "third"} {
		b.Publish("r1", typingEvent("r1", identity), "")
	}

	for _, want := range []string{"first", "second", "third"} {
		event := drainOne(t, sub)
		if event.TypingState.Identity != want {
			t.Fatalf("out of order: got %q, want %q", event.TypingState.Identity, want)
		}
	}
}

func TestPublishOrderAcrossPublishers(t *testing.T) {
	r := NewRegistry()
	b := NewBus(r)

	// One subscriber acts as the causal witness: the second publisher waits
	// until the first event reached it before publishing.
	witness := NewSubscriber("witness", "w")
	r.Join("r1", witness)

	others := make([]*Subscriber, 40)
	for i := range others {
		others[i] = NewSubscriber(fmt.Sprintf("c%d", i), "u")
		r.Join("r1", others[i])
	}

	for trial := 0; trial < 50; trial++ {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish("r1", typingEvent("r1", "first"), "")
		}()

		// The witness holding the first event establishes causal order; the
		// second event must still reach every queue after the first.
		<-witness.Outbound()
		b.Publish("r1", typingEvent("r1", "second"), "")
		wg.Wait()

		<-witness.Outbound()
		for _, sub := range others {
			for _, want := range []string{"first", "second"} {
				event := drainOne(t, sub)
				if event.TypingState.Identity != want {
					t.Fatalf("trial %d: %s received %q, want %q", trial, sub.ID, event.TypingState.Identity, want)
				}
			}
		}
	}
}
