// ABOUTME: SQLite implementation of the Store interfaces using modernc.org/sqlite
// ABOUTME: Opens the database, creates the schema and applies column migrations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store and SessionStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements both store contracts.
var (
	_ Store        = (*SQLiteStore)(nil)
	_ SessionStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	inMemory := path == ":memory:"
	if !inMemory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them, not just the first.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !inMemory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is its own database
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS members (
			id            TEXT PRIMARY KEY,
			member_number TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TEXT NOT NULL,

			CHECK (role IN ('member', 'admin'))
		);

		CREATE TABLE IF NOT EXISTS credentials (
			member_id     TEXT PRIMARY KEY REFERENCES members(id) ON DELETE CASCADE,
			password_hash TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		-- Sessions reference members weakly: no foreign key on member_id
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			member_id  TEXT,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_member ON sessions(member_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS session_notices (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			kind       TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at TEXT NOT NULL,

			CHECK (kind IN ('success', 'error'))
		);

		CREATE INDEX IF NOT EXISTS idx_session_notices_session ON session_notices(session_id, id);

		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			event_date  TEXT NOT NULL,
			place       TEXT NOT NULL,
			description TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);

		CREATE TABLE IF NOT EXISTS logs (
			id            TEXT PRIMARY KEY,
			member_number TEXT NOT NULL,
			log_date      TEXT NOT NULL,
			point         INTEGER NOT NULL,
			re_entry      INTEGER NOT NULL,
			max_pot       INTEGER NOT NULL,
			event         TEXT NOT NULL,
			total_point   INTEGER NOT NULL,
			bp            INTEGER NOT NULL,
			created_at    TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_logs_member_date ON logs(member_number, log_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "logs",
			column: "created_at",
			apply:  `ALTER TABLE logs ADD COLUMN created_at TEXT NOT NULL DEFAULT ''`,
		},
	}

	for _, m := range migrations {
		var exists int
		check := fmt.Sprintf(`SELECT 1 FROM pragma_table_info('%s') WHERE name = ?`, m.table)
		err := s.db.QueryRow(check, m.column).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	return nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// formatTime renders t the way every timestamp column is stored.
// RFC3339 in UTC sorts lexically, which the range queries rely on.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", column, err)
	}
	return t, nil
}

// nullString converts an empty string to NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
