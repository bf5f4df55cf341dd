package state

import (
	"fmt"
	"testing"

	"github.com/LimeProgramming/defectio"
)

func TestPutReturnsPrevious(t *testing.T) {
	t.Parallel()

	c := New(10)

	if _, existed := c.PutUser(defectio.User{ID: "u1", Username: "ada"}); existed {
		t.Error("first put reported an existing snapshot")
	}

	prev, existed := c.PutUser(defectio.User{ID: "u1", Username: "ada2"})
	if !existed {
		t.Fatal("second put reported no existing snapshot")
	}
	if prev.Username != "ada" {
		t.Errorf("prev.Username = %q, want %q", prev.Username, "ada")
	}

	cur, ok := c.User("u1")
	if !ok || cur.Username != "ada2" {
		t.Errorf("User(u1) = %+v, %v", cur, ok)
	}
}

// TestReplayIdempotent checks last-write-wins: replaying the same snapshot
// twice leaves the cache in the same state as applying it once.
func TestReplayIdempotent(t *testing.T) {
	t.Parallel()

	c := New(10)
	msg := defectio.Message{ID: "m1", ChannelID: "c1", Content: "hello"}

	c.PutMessage(msg)
	c.PutMessage(msg)

	if n := c.MessageCount("c1"); n != 1 {
		t.Errorf("MessageCount = %d, want 1", n)
	}
	got, ok := c.Message("c1", "m1")
	if !ok || got.Content != "hello" {
		t.Errorf("Message = %+v, %v", got, ok)
	}
}

func TestMessageEvictionPerChannel(t *testing.T) {
	t.Parallel()

	const max = 3
	c := New(max)

	for i := 0; i < max+2; i++ {
		c.PutMessage(defectio.Message{ID: fmt.Sprintf("m%d", i), ChannelID: "c1"})
	}
	c.PutMessage(defectio.Message{ID: "other", ChannelID: "c2"})

	if n := c.MessageCount("c1"); n != max {
		t.Errorf("MessageCount(c1) = %d, want %d", n, max)
	}
	if n := c.MessageCount("c2"); n != 1 {
		t.Errorf("MessageCount(c2) = %d, want 1", n)
	}

	// Oldest two evicted, newest three retained.
	for i := 0; i < 2; i++ {
		if _, ok := c.Message("c1", fmt.Sprintf("m%d", i)); ok {
			t.Errorf("m%d survived eviction", i)
		}
	}
	for i := 2; i < max+2; i++ {
		if _, ok := c.Message("c1", fmt.Sprintf("m%d", i)); !ok {
			t.Errorf("m%d evicted too early", i)
		}
	}
}

// TestEvictionSkipsUpdatedMessage checks that updating a cached message
// does not count against the bound or reorder eviction.
func TestEvictionSkipsUpdatedMessage(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.PutMessage(defectio.Message{ID: "m1", ChannelID: "c1", Content: "a"})
	c.PutMessage(defectio.Message{ID: "m2", ChannelID: "c1", Content: "b"})
	c.PutMessage(defectio.Message{ID: "m1", ChannelID: "c1", Content: "a2"})

	if n := c.MessageCount("c1"); n != 2 {
		t.Errorf("MessageCount = %d, want 2", n)
	}
	got, ok := c.Message("c1", "m1")
	if !ok || got.Content != "a2" {
		t.Errorf("Message(m1) = %+v, %v", got, ok)
	}
}

func TestDeleteServerCascades(t *testing.T) {
	t.Parallel()

	c := New(10)
	c.PutServer(defectio.Server{ID: "s1", Name: "one"})
	c.PutServer(defectio.Server{ID: "s2", Name: "two"})
	c.PutChannel(defectio.Channel{ID: "c1", ServerID: "s1"})
	c.PutChannel(defectio.Channel{ID: "c2", ServerID: "s2"})
	c.PutMessage(defectio.Message{ID: "m1", ChannelID: "c1"})
	c.PutMessage(defectio.Message{ID: "m2", ChannelID: "c2"})
	c.PutMember(defectio.Member{ID: defectio.MemberID{Server: "s1", User: "u1"}})
	c.PutMember(defectio.Member{ID: defectio.MemberID{Server: "s2", User: "u1"}})
	c.PutRole(defectio.Role{ServerID: "s1", ID: "r1"})
	c.PutRole(defectio.Role{ServerID: "s2", ID: "r1"})

	prev, existed := c.DeleteServer("s1")
	if !existed || prev.Name != "one" {
		t.Fatalf("DeleteServer = %+v, %v", prev, existed)
	}

	if _, ok := c.Channel("c1"); ok {
		t.Error("channel of the deleted server survived")
	}
	if _, ok := c.Message("c1", "m1"); ok {
		t.Error("messages of the deleted server's channel survived")
	}
	if _, ok := c.Member("s1", "u1"); ok {
		t.Error("member of the deleted server survived")
	}
	if _, ok := c.Role("s1", "r1"); ok {
		t.Error("role of the deleted server survived")
	}

	// The sibling server's entities are untouched.
	if _, ok := c.Channel("c2"); !ok {
		t.Error("sibling channel removed")
	}
	if _, ok := c.Message("c2", "m2"); !ok {
		t.Error("sibling message removed")
	}
	if _, ok := c.Member("s2", "u1"); !ok {
		t.Error("sibling member removed")
	}
	if _, ok := c.Role("s2", "r1"); !ok {
		t.Error("sibling role removed")
	}
}

func TestDeleteChannelDropsHistory(t *testing.T) {
	t.Parallel()

	c := New(10)
	c.PutChannel(defectio.Channel{ID: "c1"})
	c.PutMessage(defectio.Message{ID: "m1", ChannelID: "c1"})

	if _, existed := c.DeleteChannel("c1"); !existed {
		t.Fatal("DeleteChannel reported no snapshot")
	}
	if _, ok := c.Message("c1", "m1"); ok {
		t.Error("message history survived channel deletion")
	}
	if n := c.MessageCount("c1"); n != 0 {
		t.Errorf("MessageCount = %d, want 0", n)
	}
}

func TestSeedReadyReplacesAndIndexesRoles(t *testing.T) {
	t.Parallel()

	c := New(10)
	c.SetSelfID("old")
	c.PutUser(defectio.User{ID: "stale"})
	c.PutMessage(defectio.Message{ID: "stale", ChannelID: "c0"})

	c.SeedReady(
		[]defectio.User{{ID: "u1", Username: "ada"}},
		[]defectio.Server{{
			ID:    "s1",
			Roles: map[string]defectio.Role{"r1": {Name: "admin"}},
		}},
		[]defectio.Channel{{ID: "c1", ServerID: "s1"}},
		[]defectio.Member{{ID: defectio.MemberID{Server: "s1", User: "u1"}}},
	)

	if _, ok := c.User("stale"); ok {
		t.Error("stale user survived reseed")
	}
	if _, ok := c.Message("c0", "stale"); ok {
		t.Error("stale message survived reseed")
	}
	if c.SelfID() != "" {
		t.Errorf("SelfID = %q, want cleared", c.SelfID())
	}

	if _, ok := c.User("u1"); !ok {
		t.Error("seeded user missing")
	}
	role, ok := c.Role("s1", "r1")
	if !ok {
		t.Fatal("embedded role not indexed")
	}
	if role.Name != "admin" || role.ServerID != "s1" || role.ID != "r1" {
		t.Errorf("indexed role = %+v", role)
	}
	if _, ok := c.Member("s1", "u1"); !ok {
		t.Error("seeded member missing")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	c := New(10)
	c.SetSelfID("u1")
	c.PutUser(defectio.User{ID: "u1"})
	c.PutRelationship(defectio.Relationship{UserID: "u2", Status: defectio.RelationFriend})

	c.Clear()

	if c.SelfID() != "" {
		t.Errorf("SelfID = %q after Clear", c.SelfID())
	}
	if _, ok := c.User("u1"); ok {
		t.Error("user survived Clear")
	}
	if _, ok := c.Relationship("u2"); ok {
		t.Error("relationship survived Clear")
	}
}
