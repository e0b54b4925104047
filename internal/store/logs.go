// ABOUTME: Game log store methods for the SQLite store
// ABOUTME: Logs are append-only and queried per member within a date window

package store

import (
	"context"
	"fmt"
	"strings"
)

// CreateLog inserts a game log. Derived fields must already be set.
func (s *SQLiteStore) CreateLog(ctx context.Context, log *Log) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (id, member_number, log_date, point, re_entry, max_pot, event, total_point, bp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.ID,
		log.MemberNumber,
		formatTime(log.Date),
		log.Point,
		log.ReEntry,
		log.MaxPot,
		log.Event,
		log.TotalPoint,
		log.BP,
		formatTime(log.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting log: %w", err)
	}

	s.logger.Debug("created log", "id", log.ID, "member_number", log.MemberNumber)
	return nil
}

// ListLogs returns logs ordered by date, optionally filtered by member and window.
func (s *SQLiteStore) ListLogs(ctx context.Context, filter LogFilter) ([]*Log, error) {
	query := `
		SELECT id, member_number, log_date, point, re_entry, max_pot, event, total_point, bp, created_at
		FROM logs`

	var conditions []string
	var args []any
	if filter.MemberNumber != "" {
		conditions = append(conditions, "member_number = ?")
		args = append(args, filter.MemberNumber)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "log_date >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "log_date < ?")
		args = append(args, formatTime(filter.To))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY log_date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*Log
	for rows.Next() {
		var l Log
		var dateStr, createdAtStr string
		err := rows.Scan(
			&l.ID,
			&l.MemberNumber,
			&dateStr,
			&l.Point,
			&l.ReEntry,
			&l.MaxPot,
			&l.Event,
			&l.TotalPoint,
			&l.BP,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}

		if l.Date, err = parseTime("log_date", dateStr); err != nil {
			return nil, err
		}
		// Rows written before the created_at migration carry an empty value
		if createdAtStr != "" {
			if l.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
				return nil, err
			}
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}
