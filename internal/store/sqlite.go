package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/limbera/dripmax-app-sub001/internal/providers"
	"github.com/limbera/dripmax-app-sub001/internal/state"
)

// SQLiteStore implements all repositories using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	Sessions *SQLiteSessionRepo
	Launch   *SQLiteLaunchRepo
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		Sessions: &SQLiteSessionRepo{db: db},
		Launch:   &SQLiteLaunchRepo{db: db},
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	migration := `
	-- Cached session table (single row)
	CREATE TABLE IF NOT EXISTS cached_session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Launch state table (single row)
	CREATE TABLE IF NOT EXISTS launch_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	INSERT OR IGNORE INTO launch_state (id, state, updated_at)
	VALUES (1, 'initializing', CURRENT_TIMESTAMP);

	-- Transitions history table
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		trigger TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(migration)
	return err
}

// SQLiteSessionRepo implements SessionRepository.
type SQLiteSessionRepo struct {
	db *sql.DB
}

func (r *SQLiteSessionRepo) GetSession(ctx context.Context) (*providers.Session, error) {
	var s providers.Session
	err := r.db.QueryRowContext(ctx,
		"SELECT session_id, user_id, email, expires_at FROM cached_session WHERE id = 1",
	).Scan(&s.ID, &s.UserID, &s.Email, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSessionRepo) SaveSession(ctx context.Context, s *providers.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cached_session (id, session_id, user_id, email, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			user_id = excluded.user_id,
			email = excluded.email,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, s.ID, s.UserID, s.Email, s.ExpiresAt, time.Now())
	return err
}

func (r *SQLiteSessionRepo) DeleteSession(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cached_session WHERE id = 1")
	return err
}

// SQLiteLaunchRepo implements LaunchRepository.
type SQLiteLaunchRepo struct {
	db *sql.DB
}

func (r *SQLiteLaunchRepo) GetState(ctx context.Context) (state.State, error) {
	var s string
	err := r.db.QueryRowContext(ctx, "SELECT state FROM launch_state WHERE id = 1").Scan(&s)
	if err != nil {
		return "", err
	}
	return state.State(s), nil
}

func (r *SQLiteLaunchRepo) SaveState(ctx context.Context, s state.State) error {
	_, err := r.db.ExecContext(ctx, "UPDATE launch_state SET state = ?, updated_at = ? WHERE id = 1", string(s), time.Now())
	return err
}

func (r *SQLiteLaunchRepo) LogTransition(ctx context.Context, from, to state.State, trigger string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO transitions (from_state, to_state, trigger, timestamp) VALUES (?, ?, ?, ?)",
		string(from), string(to), trigger, time.Now(),
	)
	return err
}

func (r *SQLiteLaunchRepo) GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, from_state, to_state, trigger, timestamp FROM transitions ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		var from, to string
		err := rows.Scan(&t.ID, &from, &to, &t.Trigger, &t.Timestamp)
		if err != nil {
			return nil, err
		}
		t.FromState = state.State(from)
		t.ToState = state.State(to)
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
