package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	InboundTypeJoinRoom = "joinRoom"
	InboundTypeFile     = "file"

	OutboundTypeRoomJoined = "roomJoined"
	OutboundTypeReady      = "ready"
	OutboundTypeNotReady   = "notReady"
	OutboundTypeFile       = "file"
	OutboundTypeError      = "error"
)

// JoinRoomData requests to join a room. An empty RoomID asks the server to create one.
type JoinRoomData struct {
	RoomID string `json:"roomId,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RoomJoinedData carries the canonical room code after a join.
type RoomJoinedData struct {
	RoomID string `json:"roomId"`
}

// FileData wraps a relayed payload with the sender's connection id.
// Data is forwarded exactly as received.
type FileData struct {
	SenderID string          `json:"senderId"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes that originate in the transport layer.
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeUnknownType    = "unknown_type"
	ErrCodeRateLimited    = "rate_limited"

	MsgInvalidFormat = "Invalid message format"
)

// NewError builds an outbound error envelope.
func NewError(code, msg string) Outbound {
	return Outbound{Type: OutboundTypeError, Payload: Error{Code: code, Message: msg}}
}
