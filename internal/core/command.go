package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom places the client in a room, creating it when needed.
	CommandJoinRoom CommandKind = iota
	// CommandRelay forwards a payload to the other members of the client's room.
	CommandRelay
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	// Room is the requested room code for CommandJoinRoom. Empty means "create one".
	Room string
	// Payload is the opaque data for CommandRelay.
	Payload json.RawMessage
}
