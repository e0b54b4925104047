// ABOUTME: Store interfaces and record types for pokercircle persistence
// ABOUTME: Defines Member, Credential, Session, Notice, Event and Log plus their store contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrMemberExists is returned when a member number is already registered
var ErrMemberExists = errors.New("member number already exists")

// ErrSessionNotFound is returned when a session doesn't exist or is expired
var ErrSessionNotFound = errors.New("session not found")

// Role is the scalar role carried by a member
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Member is a registered club member (the authenticated principal)
type Member struct {
	ID           string
	MemberNumber string
	DisplayName  string
	Role         Role
	CreatedAt    time.Time
}

// Credential holds the password material for a member.
// PasswordHash is a bcrypt hash, which embeds its own salt.
type Credential struct {
	MemberID     string
	PasswordHash string
	UpdatedAt    time.Time
}

// Session is server-side state keyed by the token the client holds.
// MemberID is empty for anonymous sessions.
type Session struct {
	ID        string
	MemberID  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticated reports whether a member is bound to the session
func (s *Session) Authenticated() bool {
	return s != nil && s.MemberID != ""
}

// NoticeKind tags a flash notice for presentation
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a one-shot flash message queued on a session
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// Event is a scheduled club event
type Event struct {
	ID          string
	Name        string
	Date        time.Time
	Place       string
	Description string // markdown
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventFilter narrows ListEvents. Zero times are unbounded; To is exclusive.
type EventFilter struct {
	From time.Time
	To   time.Time
}

// Log is a member's result for one game session
type Log struct {
	ID           string
	MemberNumber string
	Date         time.Time
	Point        int
	ReEntry      int
	MaxPot       int
	Event        string
	TotalPoint   int
	BP           int
	CreatedAt    time.Time
}

// LogFilter narrows ListLogs. Zero times are unbounded; To is exclusive.
type LogFilter struct {
	MemberNumber string
	From         time.Time
	To           time.Time
}

// MemberStore persists members and their credentials
type MemberStore interface {
	// CreateMember inserts the member and its credential as one unit.
	// Returns ErrMemberExists if the member number is taken.
	CreateMember(ctx context.Context, member *Member, cred *Credential) error
	GetMember(ctx context.Context, id string) (*Member, error)
	GetMemberByNumber(ctx context.Context, memberNumber string) (*Member, error)
	GetCredential(ctx context.Context, memberID string) (*Credential, error)
	CountMembers(ctx context.Context) (int, error)
}

// SessionStore persists sessions and their pending notices
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	// GetSession returns ErrSessionNotFound for unknown or expired sessions.
	GetSession(ctx context.Context, id string) (*Session, error)
	// SetSessionMember binds memberID to the session; an empty memberID unbinds.
	SetSessionMember(ctx context.Context, id, memberID string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	PushNotice(ctx context.Context, sessionID string, notice Notice) error
	// DrainNotices returns pending notices in insertion order and removes them.
	DrainNotices(ctx context.Context, sessionID string) ([]Notice, error)
}

// EventStore persists club events
type EventStore interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	UpdateEvent(ctx context.Context, event *Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// LogStore persists game logs
type LogStore interface {
	CreateLog(ctx context.Context, log *Log) error
	ListLogs(ctx context.Context, filter LogFilter) ([]*Log, error)
}

// Store combines every record store the web app needs
type Store interface {
	MemberStore
	EventStore
	LogStore

	// Ping checks that the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
