package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/droprelay/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// expectNoEvent fails if an event of the given kind shows up within wait.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, 32)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return c
}

func join(t *testing.T, c *Client, room string) *Event {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room}
	return mustEvent(t, c.Events, EventRoomJoined)
}

func hubStats(t *testing.T, hub *Hub) Stats {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	return s
}

type memoryRecorder struct {
	mu       sync.Mutex
	sessions []store.RoomSession
}

func (r *memoryRecorder) Record(s store.RoomSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return true
}

func (r *memoryRecorder) all() []store.RoomSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.RoomSession(nil), r.sessions...)
}
