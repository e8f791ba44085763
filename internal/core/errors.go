package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeRoomUnavailable = "room_unavailable"
)

var (
	ErrAlreadyJoined   = errors.New("already joined")
	ErrRoomUnavailable = errors.New("no free room code")
	ErrHubStopped      = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
