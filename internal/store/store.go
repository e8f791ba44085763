package store

import (
	"context"
	"time"
)

// RoomSession is the lifetime of a single room, from its first join until
// its last member left.
type RoomSession struct {
	ID            int64
	Code          string
	OpenedAt      time.Time
	ClosedAt      time.Time
	PeakMembers   int
	FramesRelayed int64
}

// Duration reports how long the room existed.
func (s RoomSession) Duration() time.Duration {
	return s.ClosedAt.Sub(s.OpenedAt)
}

// HistoryStore persists closed room sessions.
type HistoryStore interface {
	SaveRoomSession(ctx context.Context, session RoomSession) (*RoomSession, error)
	ListRoomSessions(ctx context.Context, limit int) ([]RoomSession, error)
	Close() error
}
