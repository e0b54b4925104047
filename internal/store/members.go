// ABOUTME: Member and credential store methods for the SQLite store
// ABOUTME: Member and credential rows are written in one transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateMember inserts a member and its credential atomically.
// If either insert fails nothing is committed.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *Member, cred *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning member transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, member_number, display_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		member.ID,
		member.MemberNumber,
		member.DisplayName,
		string(member.Role),
		formatTime(member.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrMemberExists
		}
		return fmt.Errorf("inserting member: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (member_id, password_hash, updated_at)
		VALUES (?, ?, ?)
	`,
		member.ID,
		cred.PasswordHash,
		formatTime(cred.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing member: %w", err)
	}

	cred.MemberID = member.ID
	s.logger.Info("created member", "id", member.ID, "member_number", member.MemberNumber, "role", member.Role)
	return nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, id string) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_number, display_name, role, created_at
		FROM members
		WHERE id = ?
	`, id)
	return scanMember(row)
}

// GetMemberByNumber retrieves a member by member number.
func (s *SQLiteStore) GetMemberByNumber(ctx context.Context, memberNumber string) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_number, display_name, role, created_at
		FROM members
		WHERE member_number = ?
	`, memberNumber)
	return scanMember(row)
}

func scanMember(row *sql.Row) (*Member, error) {
	var member Member
	var role, createdAtStr string

	err := row.Scan(&member.ID, &member.MemberNumber, &member.DisplayName, &role, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}

	member.Role = Role(role)
	member.CreatedAt, err = parseTime("created_at", createdAtStr)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetCredential retrieves the credential for a member.
func (s *SQLiteStore) GetCredential(ctx context.Context, memberID string) (*Credential, error) {
	var cred Credential
	var updatedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT member_id, password_hash, updated_at
		FROM credentials
		WHERE member_id = ?
	`, memberID).Scan(&cred.MemberID, &cred.PasswordHash, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	cred.UpdatedAt, err = parseTime("updated_at", updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// CountMembers returns the number of registered members.
func (s *SQLiteStore) CountMembers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting members: %w", err)
	}
	return count, nil
}
