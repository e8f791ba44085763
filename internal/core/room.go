package core

import "time"

// RoomState is derived from the member count; it is never stored.
type RoomState int

const (
	RoomEmpty RoomState = iota
	RoomWaiting
	RoomReady
)

func (s RoomState) String() string {
	switch s {
	case RoomEmpty:
		return "empty"
	case RoomWaiting:
		return "waiting"
	case RoomReady:
		return "ready"
	default:
		return "unknown"
	}
}

// readyThreshold is the member count at which a room becomes ready.
const readyThreshold = 2

// Room groups clients that relay payloads to each other. Members are kept in
// join order.
type Room struct {
	Code     string
	OpenedAt time.Time

	members       []*Client
	peakMembers   int
	framesRelayed int64
}

// NewRoom constructs a room with no clients.
func NewRoom(code string, openedAt time.Time) *Room {
	return &Room{
		Code:     code,
		OpenedAt: openedAt,
	}
}

// AddClient appends a client to the room. Returns false if it is already a member.
func (r *Room) AddClient(c *Client) bool {
	if r.Has(c) {
		return false
	}
	r.members = append(r.members, c)
	if len(r.members) > r.peakMembers {
		r.peakMembers = len(r.members)
	}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether c is a member.
func (r *Room) Has(c *Client) bool {
	for _, m := range r.members {
		if m == c {
			return true
		}
	}
	return false
}

// Members returns a copy of the member list, safe to iterate while the room changes.
func (r *Room) Members() []*Client {
	out := make([]*Client, len(r.members))
	copy(out, r.members)
	return out
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// State derives the room state from its member count.
func (r *Room) State() RoomState {
	switch n := len(r.members); {
	case n == 0:
		return RoomEmpty
	case n < readyThreshold:
		return RoomWaiting
	default:
		return RoomReady
	}
}

// Ready reports whether the room has enough members to exchange payloads.
func (r *Room) Ready() bool {
	return r.State() == RoomReady
}
