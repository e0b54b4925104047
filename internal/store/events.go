// ABOUTME: Club event store methods for the SQLite store
// ABOUTME: Events are listed in date order and filtered by an optional date window

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateEvent inserts a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, event_date, place, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Name,
		formatTime(event.Date),
		event.Place,
		nullString(event.Description),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("created event", "id", event.ID, "name", event.Name)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, event_date, place, description, created_at, updated_at
		FROM events
		WHERE id = ?
	`, id)

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns events ordered by date, optionally bounded by filter.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	query := `
		SELECT id, name, event_date, place, description, created_at, updated_at
		FROM events`

	var conditions []string
	var args []any
	if !filter.From.IsZero() {
		conditions = append(conditions, "event_date >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "event_date < ?")
		args = append(args, formatTime(filter.To))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY event_date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// UpdateEvent overwrites the mutable fields of an existing event.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, event *Event) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET name = ?, event_date = ?, place = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		event.Name,
		formatTime(event.Date),
		event.Place,
		nullString(event.Description),
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted event", "id", id)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var event Event
	var description sql.NullString
	var dateStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&event.ID,
		&event.Name,
		&dateStr,
		&event.Place,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	event.Description = description.String
	if event.Date, err = parseTime("event_date", dateStr); err != nil {
		return nil, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &event, nil
}
