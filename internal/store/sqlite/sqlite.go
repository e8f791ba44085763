package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/droprelay/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_sessions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	code           TEXT NOT NULL,
	opened_at      DATETIME NOT NULL,
	closed_at      DATETIME NOT NULL,
	peak_members   INTEGER NOT NULL DEFAULT 0,
	frames_relayed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_room_sessions_closed ON room_sessions(closed_at DESC);
`

// SQLiteStore implements store.HistoryStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, migrate)
}

// NewWithSetup opens the database and runs a setup function instead of the default schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRoomSession inserts a closed session and returns it with its ID set.
func (s *SQLiteStore) SaveRoomSession(ctx context.Context, session store.RoomSession) (*store.RoomSession, error) {
	query := `
		INSERT INTO room_sessions (code, opened_at, closed_at, peak_members, frames_relayed)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		session.Code,
		session.OpenedAt.UTC(),
		session.ClosedAt.UTC(),
		session.PeakMembers,
		session.FramesRelayed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	session.ID = id
	return &session, nil
}

// ListRoomSessions returns the most recently closed sessions, newest first.
func (s *SQLiteStore) ListRoomSessions(ctx context.Context, limit int) ([]store.RoomSession, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, code, opened_at, closed_at, peak_members, frames_relayed
		FROM room_sessions
		ORDER BY closed_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query room sessions: %w", err)
	}
	defer rows.Close()

	var sessions []store.RoomSession
	for rows.Next() {
		var (
			session  store.RoomSession
			openedAt time.Time
			closedAt time.Time
		)
		if err := rows.Scan(&session.ID, &session.Code, &openedAt, &closedAt, &session.PeakMembers, &session.FramesRelayed); err != nil {
			return nil, fmt.Errorf("scan room session: %w", err)
		}
		session.OpenedAt = openedAt
		session.ClosedAt = closedAt
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room sessions: %w", err)
	}

	return sessions, nil
}
