// ABOUTME: Authentication gate: verifies member credentials and registers new members
// ABOUTME: Unknown members and wrong passwords cost the same bcrypt work and produce the same public message

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pokercircle/internal/store"
)

// DefaultMinPasswordLength is used when GateConfig.MinPasswordLength is 0.
const DefaultMinPasswordLength = 8

// GateConfig tunes the gate.
type GateConfig struct {
	MinPasswordLength int
	// Limiter may be nil to disable failed-login limiting.
	Limiter *LoginLimiter
	// Hasher defaults to bcrypt at the default cost.
	Hasher Hasher
}

// Gate authenticates members and registers new ones.
type Gate struct {
	members   store.MemberStore
	hasher    Hasher
	limiter   *LoginLimiter
	minLength int
	logger    *slog.Logger
}

// NewGate creates a gate over the given member store.
func NewGate(members store.MemberStore, cfg GateConfig) *Gate {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	minLength := cfg.MinPasswordLength
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	return &Gate{
		members:   members,
		hasher:    hasher,
		limiter:   cfg.Limiter,
		minLength: minLength,
		logger:    slog.Default().With("component", "auth"),
	}
}

// Authenticate verifies a member number and password.
// It returns ErrUnknownMember, ErrInvalidCredentials or ErrTooManyAttempts for
// rejected attempts; any other error is a persistence failure.
func (g *Gate) Authenticate(ctx context.Context, memberNumber, password string) (*store.Member, error) {
	memberNumber = strings.TrimSpace(memberNumber)
	if memberNumber == "" {
		return nil, missingField("member number")
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	if g.limiter.Blocked(memberNumber) {
		g.logger.Warn("login refused, too many failures", "member_number", memberNumber)
		return nil, ErrTooManyAttempts
	}

	member, err := g.members.GetMemberByNumber(ctx, memberNumber)
	if errors.Is(err, store.ErrNotFound) {
		_ = g.hasher.Compare(dummyHash, password)
		g.limiter.Failure(memberNumber)
		g.logger.Info("login failed", "member_number", memberNumber, "reason", "unknown member")
		return nil, ErrUnknownMember
	}
	if err != nil {
		return nil, fmt.Errorf("looking up member: %w", err)
	}

	cred, err := g.members.GetCredential(ctx, member.ID)
	if errors.Is(err, store.ErrNotFound) {
		_ = g.hasher.Compare(dummyHash, password)
		g.limiter.Failure(memberNumber)
		g.logger.Warn("login failed", "member_number", memberNumber, "reason", "no credential")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up credential: %w", err)
	}

	if err := g.hasher.Compare(cred.PasswordHash, password); err != nil {
		g.limiter.Failure(memberNumber)
		g.logger.Info("login failed", "member_number", memberNumber, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	g.limiter.Reset(memberNumber)
	g.logger.Info("login succeeded", "member_number", memberNumber, "role", member.Role)
	return member, nil
}

// RegisterInput is the data needed to create a member.
type RegisterInput struct {
	MemberNumber string
	DisplayName  string
	Role         store.Role
	Password     string
}

// Register validates in, hashes the password and creates the member and
// credential together. Nothing is persisted when any step fails.
func (g *Gate) Register(ctx context.Context, in RegisterInput) (*store.Member, error) {
	in.MemberNumber = strings.TrimSpace(in.MemberNumber)
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if in.MemberNumber == "" {
		return nil, missingField("member number")
	}
	if in.DisplayName == "" {
		return nil, missingField("name")
	}
	if in.Role == "" {
		return nil, missingField("role")
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}
	if in.Password == "" {
		return nil, ErrMissingPassword
	}
	if len(in.Password) < g.minLength {
		return nil, fmt.Errorf("%w: use at least %d characters", ErrPasswordTooShort, g.minLength)
	}

	hash, err := g.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	member := &store.Member{
		ID:           uuid.New().String(),
		MemberNumber: in.MemberNumber,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		CreatedAt:    now,
	}
	cred := &store.Credential{
		PasswordHash: hash,
		UpdatedAt:    now,
	}

	if err := g.members.CreateMember(ctx, member, cred); err != nil {
		if errors.Is(err, store.ErrMemberExists) {
			return nil, ErrDuplicateMember
		}
		return nil, fmt.Errorf("creating member: %w", err)
	}

	return member, nil
}

// Limiter returns the gate's failed-login limiter, which may be nil.
func (g *Gate) Limiter() *LoginLimiter {
	return g.limiter
}
