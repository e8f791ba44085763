package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const saveTimeout = 5 * time.Second

// Recorder writes room sessions to a HistoryStore from its own goroutine so
// callers never block on database I/O.
type Recorder struct {
	store HistoryStore
	queue chan RoomSession
	log   *zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewRecorder builds a recorder with a queue of the given size.
func NewRecorder(st HistoryStore, buffer int, logger *zerolog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 1
	}
	return &Recorder{
		store:   st,
		queue:   make(chan RoomSession, buffer),
		log:     logger,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Record enqueues a session. It returns false when the queue is full or the
// recorder has been stopped; the session is then discarded.
func (r *Recorder) Record(session RoomSession) bool {
	select {
	case <-r.stopped:
		return false
	default:
	}

	select {
	case r.queue <- session:
		return true
	default:
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case session := <-r.queue:
			r.save(session)
		case <-ctx.Done():
			r.stopOnce.Do(func() { close(r.stopped) })
			r.flush()
			return
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) flush() {
	for {
		select {
		case session := <-r.queue:
			r.save(session)
		default:
			return
		}
	}
}

func (r *Recorder) save(session RoomSession) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	saved, err := r.store.SaveRoomSession(ctx, session)
	if err != nil {
		r.log.Error().Err(err).Str("room", session.Code).Msg("failed to save room session")
		return
	}
	r.log.Debug().
		Int64("id", saved.ID).
		Str("room", saved.Code).
		Int("peak_members", saved.PeakMembers).
		Int64("frames_relayed", saved.FramesRelayed).
		Dur("duration", saved.Duration()).
		Msg("room session recorded")
}
