package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomJoined tells the client the canonical code of the room it joined.
	EventRoomJoined EventKind = iota
	// EventReady tells every member that the room has a peer to exchange with.
	EventReady
	// EventNotReady tells a member it is waiting for a peer.
	EventNotReady
	// EventFile delivers a payload relayed from another member.
	EventFile
	// EventError notifies the client about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRoomJoined:
		return "roomJoined"
	case EventReady:
		return "ready"
	case EventNotReady:
		return "notReady"
	case EventFile:
		return "file"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	SenderID string          // EventFile only
	Payload  json.RawMessage // EventFile only, untouched
	Error    *CoreError
}
