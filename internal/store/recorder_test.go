package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeHistory struct {
	mu      sync.Mutex
	saved   []RoomSession
	failFor string
	block   chan struct{}
}

func (f *fakeHistory) SaveRoomSession(_ context.Context, session RoomSession) (*RoomSession, error) {
	if f.block != nil {
		<-f.block
	}
	if session.Code == f.failFor {
		return nil, errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, session)
	return &session, nil
}

func (f *fakeHistory) ListRoomSessions(context.Context, int) ([]RoomSession, error) {
	return nil, nil
}

func (f *fakeHistory) Close() error { return nil }

func (f *fakeHistory) codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.saved))
	for _, s := range f.saved {
		out = append(out, s.Code)
	}
	return out
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestRecorderFlushesOnStop(t *testing.T) {
	hist := &fakeHistory{}
	rec := NewRecorder(hist, 8, nopLogger())

	for _, code := range []string{"ABC", "BAD", "XYZ"} {
		if !rec.Record(RoomSession{Code: code}) {
			t.Fatalf("record %s rejected", code)
		}
	}
	hist.failFor = "BAD"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)
	rec.Wait()

	got := hist.codes()
	if len(got) != 2 || got[0] != "ABC" || got[1] != "XYZ" {
		t.Fatalf("unexpected saved sessions: %v", got)
	}
	if rec.Record(RoomSession{Code: "LATE"}) {
		t.Fatal("record after stop should be rejected")
	}
}

func TestRecorderRejectsWhenFull(t *testing.T) {
	hist := &fakeHistory{block: make(chan struct{})}
	rec := NewRecorder(hist, 1, nopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)

	// First session is picked up by Run and blocks in the store.
	if !rec.Record(RoomSession{Code: "ONE"}) {
		t.Fatal("first record rejected")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.queue) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("recorder did not pick up the first session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !rec.Record(RoomSession{Code: "TWO"}) {
		t.Fatal("second record rejected")
	}
	if rec.Record(RoomSession{Code: "THREE"}) {
		t.Fatal("third record should be rejected while the queue is full")
	}

	close(hist.block)
	cancel()
	rec.Wait()

	if got := hist.codes(); len(got) != 2 {
		t.Fatalf("expected 2 saved sessions, got %v", got)
	}
}
