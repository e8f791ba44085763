package core

import (
	"strings"
	"testing"
	"time"
)

func TestRoomStateFollowsMembership(t *testing.T) {
	room := NewRoom("R", time.Now())
	a, b, c := NewClient("a", 1), NewClient("b", 1), NewClient("c", 1)

	if room.State() != RoomEmpty {
		t.Fatalf("new room state = %v", room.State())
	}
	room.AddClient(a)
	if room.State() != RoomWaiting {
		t.Fatalf("one member state = %v", room.State())
	}
	room.AddClient(b)
	room.AddClient(c)
	if !room.Ready() {
		t.Fatalf("three members state = %v", room.State())
	}
	if room.AddClient(b) {
		t.Fatal("duplicate add reported success")
	}

	room.RemoveClient(b)
	if !room.Ready() {
		t.Fatalf("two members state = %v", room.State())
	}
	room.RemoveClient(a)
	if room.State() != RoomWaiting {
		t.Fatalf("after removals state = %v", room.State())
	}
	if room.RemoveClient(a) {
		t.Fatal("removing a non-member reported success")
	}
	if room.peakMembers != 3 {
		t.Fatalf("peak members = %d, want 3", room.peakMembers)
	}
}

func TestRoomMembersIsSnapshot(t *testing.T) {
	room := NewRoom("R", time.Now())
	a, b := NewClient("a", 1), NewClient("b", 1)
	room.AddClient(a)
	room.AddClient(b)

	snapshot := room.Members()
	room.RemoveClient(a)

	if len(snapshot) != 2 || snapshot[0] != a || snapshot[1] != b {
		t.Fatalf("snapshot changed after removal: %v", snapshot)
	}
	if members := room.Members(); len(members) != 1 || members[0] != b {
		t.Fatalf("unexpected members: %v", members)
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	for in, want := range map[string]string{
		"abc":    "ABC",
		" xYz\n": "XYZ",
		" abc":   "ABC",
		"a b":    "A B",
		"":       "",
	} {
		if got := NormalizeRoomCode(in); got != want {
			t.Errorf("NormalizeRoomCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCodeGenerator(t *testing.T) {
	g, err := NewCodeGenerator(5, "aabc")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if g.Alphabet() != "ABC" {
		t.Fatalf("alphabet = %q, want ABC", g.Alphabet())
	}

	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 5 || strings.Trim(code, "ABC") != "" {
			t.Fatalf("bad code %q", code)
		}
	}

	if _, err := NewCodeGenerator(0, "abc"); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := NewCodeGenerator(3, "  "); err == nil {
		t.Fatal("expected error for empty alphabet")
	}
}
