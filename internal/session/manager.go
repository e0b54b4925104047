// ABOUTME: Session manager: resolves the request's session, binds members and queues flash notices
// ABOUTME: Sessions are created lazily and the cookie holds a signed token naming the session

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/pokercircle/internal/store"
)

// Defaults applied by NewManager when Config leaves them zero.
const (
	DefaultCookieName = "pokercircle_session"
	DefaultDuration   = 7 * 24 * time.Hour
)

// Config controls cookie and rotation behaviour.
type Config struct {
	CookieName string
	// Duration is a fixed window from session creation; activity does not extend it.
	Duration time.Duration
	// RotateOnAuth issues a fresh session ID on every bind and unbind.
	RotateOnAuth bool
	// SecureCookies forces the Secure flag even on plain HTTP requests.
	SecureCookies bool
}

// Manager implements session resolution, binding and the flash notice channel.
type Manager struct {
	store  store.SessionStore
	signer *TokenSigner
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager over the given session store.
func NewManager(st store.SessionStore, signer *TokenSigner, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Manager{
		store:  st,
		signer: signer,
		cfg:    cfg,
		logger: slog.Default().With("component", "session"),
		now:    time.Now,
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Resolve returns the session named by the request cookie. A missing,
// tampered, expired or unknown token yields a new anonymous session and a new
// cookie; only persistence failures are returned as errors.
func (m *Manager) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (*store.Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err == nil && cookie.Value != "" {
		id, verr := m.signer.Verify(cookie.Value)
		if verr == nil {
			sess, gerr := m.store.GetSession(ctx, id)
			if gerr == nil {
				return sess, nil
			}
			if !errors.Is(gerr, store.ErrSessionNotFound) {
				return nil, fmt.Errorf("loading session: %w", gerr)
			}
			m.logger.Debug("session cookie names unknown session")
		} else {
			m.logger.Debug("discarding session cookie", "reason", verr)
		}
	}

	return m.issue(ctx, w, r, "")
}

// Bind associates memberID with the session, replacing any prior binding.
// The returned session must be used for the rest of the request since the ID
// changes when rotation is enabled.
func (m *Manager) Bind(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *store.Session, memberID string) (*store.Session, error) {
	return m.setMember(ctx, w, r, sess, memberID)
}

// Unbind clears the session's member.
func (m *Manager) Unbind(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *store.Session) (*store.Session, error) {
	return m.setMember(ctx, w, r, sess, "")
}

func (m *Manager) setMember(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *store.Session, memberID string) (*store.Session, error) {
	if m.cfg.RotateOnAuth {
		return m.rotate(ctx, w, r, sess, memberID)
	}

	err := m.store.SetSessionMember(ctx, sess.ID, memberID)
	if errors.Is(err, store.ErrSessionNotFound) {
		// Expired between resolve and bind
		return m.issue(ctx, w, r, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("updating session member: %w", err)
	}

	updated := *sess
	updated.MemberID = memberID
	return &updated, nil
}

// rotate replaces sess with a new session carrying memberID and the old
// session's pending notices. The cookie is written only once the old session
// is gone; on failure the new row is removed and the client keeps its cookie.
func (m *Manager) rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *store.Session, memberID string) (*store.Session, error) {
	next, signed, err := m.create(ctx, memberID)
	if err != nil {
		return nil, err
	}

	pending, err := m.store.DrainNotices(ctx, sess.ID)
	if err != nil {
		m.discard(ctx, next, sess, nil)
		return nil, fmt.Errorf("draining notices for rotation: %w", err)
	}
	for _, n := range pending {
		if err := m.store.PushNotice(ctx, next.ID, n); err != nil {
			m.discard(ctx, next, sess, pending)
			return nil, fmt.Errorf("carrying notice over rotation: %w", err)
		}
	}

	if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
		m.discard(ctx, next, sess, pending)
		return nil, fmt.Errorf("deleting rotated session: %w", err)
	}

	m.setCookie(w, r, next, signed)
	m.logger.Debug("rotated session", "authenticated", next.Authenticated(), "carried_notices", len(pending))
	return next, nil
}

// discard undoes a failed rotation: it deletes the new session and puts the
// drained notices back on the old one.
func (m *Manager) discard(ctx context.Context, next, old *store.Session, pending []store.Notice) {
	if err := m.store.DeleteSession(ctx, next.ID); err != nil {
		m.logger.Warn("failed to remove abandoned session", "error", err)
	}
	for _, n := range pending {
		if err := m.store.PushNotice(ctx, old.ID, n); err != nil {
			m.logger.Warn("failed to restore notice after rotation", "error", err)
			return
		}
	}
}

// issue creates a session and sets its cookie.
func (m *Manager) issue(ctx context.Context, w http.ResponseWriter, r *http.Request, memberID string) (*store.Session, error) {
	sess, signed, err := m.create(ctx, memberID)
	if err != nil {
		return nil, err
	}
	m.setCookie(w, r, sess, signed)
	return sess, nil
}

// create stores a new session and returns it with its signed token.
func (m *Manager) create(ctx context.Context, memberID string) (*store.Session, string, error) {
	id, err := RandomToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("generating session id: %w", err)
	}

	now := m.now().UTC()
	sess := &store.Session{
		ID:        id,
		MemberID:  memberID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.Duration),
	}

	signed, err := m.signer.Sign(sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, "", err
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}
	return sess, signed, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, sess *store.Session, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// Enqueue appends a notice to the session's queue.
func (m *Manager) Enqueue(ctx context.Context, sess *store.Session, kind store.NoticeKind, text string) error {
	if err := m.store.PushNotice(ctx, sess.ID, store.Notice{Kind: kind, Text: text}); err != nil {
		return fmt.Errorf("enqueueing notice: %w", err)
	}
	return nil
}

// Drain returns all pending notices in insertion order and empties the queue.
func (m *Manager) Drain(ctx context.Context, sess *store.Session) ([]store.Notice, error) {
	notices, err := m.store.DrainNotices(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("draining notices: %w", err)
	}
	return notices, nil
}

// Sweep deletes expired sessions and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	return n, nil
}
