// ABOUTME: Session and flash notice store methods for the SQLite store
// ABOUTME: Notice drains are a single DELETE ... RETURNING so they are atomic per session

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// CreateSession creates a new session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, member_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`,
		session.ID,
		nullString(session.MemberID),
		formatTime(session.CreatedAt),
		formatTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "authenticated", session.Authenticated())
	return nil
}

// GetSession retrieves a valid (non-expired) session.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	var memberID sql.NullString
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`, id, formatTime(time.Now())).Scan(
		&session.ID,
		&memberID,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.MemberID = memberID.String
	if session.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = parseTime("expires_at", expiresAtStr); err != nil {
		return nil, err
	}
	return &session, nil
}

// SetSessionMember binds (or with an empty memberID, unbinds) a member.
func (s *SQLiteStore) SetSessionMember(ctx context.Context, id, memberID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET member_id = ? WHERE id = ?`,
		nullString(memberID), id,
	)
	if err != nil {
		return fmt.Errorf("updating session member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session and its pending notices.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_notices WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("deleting session notices: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and their notices.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_notices
		WHERE session_id IN (SELECT id FROM sessions WHERE expires_at <= ?)
	`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired session notices: %w", err)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired sessions", "count", rowsAffected)
	}
	return rowsAffected, nil
}

// PushNotice appends a notice to the session's queue.
func (s *SQLiteStore) PushNotice(ctx context.Context, sessionID string, notice Notice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_notices (session_id, kind, text, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, string(notice.Kind), notice.Text, formatTime(time.Now()))
	if err != nil {
		if isForeignKeyError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("inserting notice: %w", err)
	}
	return nil
}

// DrainNotices removes and returns every pending notice for the session.
// RETURNING row order is unspecified, so rows are sorted by insertion id.
func (s *SQLiteStore) DrainNotices(ctx context.Context, sessionID string) ([]Notice, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM session_notices
		WHERE session_id = ?
		RETURNING id, kind, text
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("draining notices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type queued struct {
		seq    int64
		notice Notice
	}
	var drained []queued
	for rows.Next() {
		var q queued
		var kind string
		if err := rows.Scan(&q.seq, &kind, &q.notice.Text); err != nil {
			return nil, fmt.Errorf("scanning notice: %w", err)
		}
		q.notice.Kind = NoticeKind(kind)
		drained = append(drained, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notices: %w", err)
	}

	sort.Slice(drained, func(i, j int) bool { return drained[i].seq < drained[j].seq })

	notices := make([]Notice, 0, len(drained))
	for _, q := range drained {
		notices = append(notices, q.notice)
	}
	return notices, nil
}
