package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestJoinLeaveSubscribers(t *testing.T) {
	r := NewRegistry()

	a := NewSubscriber("c1", "alice")
	b := NewSubscriber("c2", "bob")

	r.Join("r1", a)
	r.Join("r1", b)
	r.Join("r1", a) // idempotent

	subs := r.Subscribers("r1")
	if len(subs) != 2 {
		t.Fatalf("subscribers = %d, want 2", len(subs))
	}

	r.Leave("r1", "c1")
	r.Leave("r1", "c1") // idempotent

	subs = r.Subscribers("r1")
	if len(subs) != 1 || subs[0].ID != "c2" {
		t.Fatalf("after leave: got %d subscribers, want only c2", len(subs))
	}

	r.Leave("r1", "c2")

	if subs := r.Subscribers("r1"); len(subs) != 0 {
		t.Fatalf("empty room still lists %d subscribers", len(subs))
	}
}

func TestPurgeRemovesFromEveryRoom(t *testing.T) {
	r := NewRegistry()

	a := NewSubscriber("c1", "alice")
	b := NewSubscriber("c2", "bob")

	r.Join("r1", a)
	r.Join("r2", a)
	r.Join("r3", a)
	r.Join("r1", b)

	rooms := r.Purge("c1")
	if len(rooms) != 3 {
		t.Fatalf("purge returned %d rooms, want 3", len(rooms))
	}

	for _, roomID := range []string{"r1", "r2", "r3"} {
		for _, sub := range r.Subscribers(roomID) {
			if sub.ID == "c1" {
				t.Errorf("room %s still lists purged connection c1", roomID)
			}
		}
	}

	if subs := r.Subscribers("r1"); len(subs) != 1 || subs[0].ID != "c2" {
		t.Errorf("r1 should keep bob only, got %d subscribers", len(subs))
	}

	// A second purge finds nothing.
	if rooms := r.Purge("c1"); rooms != nil {
		t.Errorf("second purge returned %v, want nil", rooms)
	}
}

func TestJoinLeaveSequenceProperty(t *testing.T) {
	// For any sequence of joins and leaves the subscriber set equals the joins
	// minus the leaves minus the purged connections.
	r := NewRegistry()

	joined := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c%d", i)
		r.Join("room", NewSubscriber(id, "u"+id))
		joined[id] = true
	}
	for i := 0; i < 20; i += 2 {
		id := fmt.Sprintf("c%d", i)
		r.Leave("room", id)
		delete(joined, id)
	}
	for i := 1; i < 20; i += 4 {
		id := fmt.Sprintf("c%d", i)
		r.Purge(id)
		delete(joined, id)
	}

	subs := r.Subscribers("room")
	if len(subs) != len(joined) {
		t.Fatalf("subscriber count = %d, want %d", len(subs), len(joined))
	}
	for _, sub := range subs {
		if !joined[sub.ID] {
			t.Errorf("unexpected subscriber %s", sub.ID)
		}
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("c%d-%d", n, j)
				sub := NewSubscriber(id, "u")
				r.Join("busy", sub)
				r.Subscribers("busy")
				r.Purge(id)
			}
		}(i)
	}
	wg.Wait()

	if subs := r.Subscribers("busy"); len(subs) != 0 {
		t.Fatalf("room should be empty after churn, has %d", len(subs))
	}
}

func TestRegistryMember(t *testing.T) {
	r := NewRegistry()
	sub := NewSubscriber("c1", "alice")

	if r.Member("r1", "c1") {
		t.Fatal("membership before join")
	}

	r.Join("r1", sub)
	if !r.Member("r1", "c1") {
		t.Fatal("joined connection should be a member")
	}
	if r.Member("r2", "c1") {
		t.Fatal("membership must be per room")
	}

	r.Leave("r1", "c1")
	if r.Member("r1", "c1") {
		t.Fatal("membership after leave")
	}
}

func TestRegistryIdentityPresent(t *testing.T) {
	r := NewRegistry()

	tab1 := NewSubscriber("c1", "alice")
	tab2 := NewSubscriber("c2", "alice")
	r.Join("r1", tab1)
	r.Join("r1", tab2)

	r.Leave("r1", "c1")
	if !r.IdentityPresent("r1", "alice") {
		t.Fatal("identity with a remaining connection must stay present")
	}

	r.Leave("r1", "c2")
	if r.IdentityPresent("r1", "alice") {
		t.Fatal("identity with no connections must not be present")
	}
	if r.IdentityPresent("r2", "alice") {
		t.Fatal("unknown room must report absent")
	}
}
