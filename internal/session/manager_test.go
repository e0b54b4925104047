// ABOUTME: Tests for the session manager against the mock store
// ABOUTME: Covers lazy creation, bad cookies, bind/unbind with and without rotation, and notices

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pokercircle/internal/store"
)

func newTestManager(t *testing.T, rotate bool) (*Manager, *store.MockStore) {
	t.Helper()

	signer, err := NewTokenSigner(testSecret)
	require.NoError(t, err)

	s := store.NewMockStore()
	m := NewManager(s, signer, Config{Duration: time.Hour, RotateOnAuth: rotate})
	return m, s
}

// sessionCookie returns the session cookie set on rec, failing if absent.
func sessionCookie(t *testing.T, m *Manager, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == m.CookieName() {
			return c
		}
	}
	t.Fatalf("no %s cookie set", m.CookieName())
	return nil
}

func TestManager_Resolve_CreatesSessionWithoutCookie(t *testing.T) {
	m, s := newTestManager(t, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	sess, err := m.Resolve(context.Background(), rec, req)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.Len(t, sess.ID, 64)
	assert.Equal(t, 1, s.SessionCount())

	cookie := sessionCookie(t, m, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestManager_Resolve_ReusesValidCookie(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	first, err := m.Resolve(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, m, rec))
	rec2 := httptest.NewRecorder()

	second, err := m.Resolve(ctx, rec2, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Empty(t, rec2.Result().Cookies())
	assert.Equal(t, 1, s.SessionCount())
}

func TestManager_Resolve_BadCookiesStartFresh(t *testing.T) {
	m, _ := newTestManager(t, true)
	ctx := context.Background()

	expiredToken, err := m.signer.Sign("whatever", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	unknownToken, err := m.signer.Sign("never-created", time.Now().Add(time.Hour))
	require.NoError(t, err)

	for name, value := range map[string]string{
		"garbage": "garbage",
		"expired": expiredToken,
		"unknown": unknownToken,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: m.CookieName(), Value: value})
			rec := httptest.NewRecorder()

			sess, err := m.Resolve(ctx, rec, req)
			require.NoError(t, err)
			assert.NotEqual(t, "never-created", sess.ID)
			assert.False(t, sess.Authenticated())
			sessionCookie(t, m, rec)
		})
	}
}

func TestManager_Resolve_StoreFailure(t *testing.T) {
	m, s := newTestManager(t, true)
	boom := errors.New("db down")
	s.FailWith("CreateSession", boom)

	_, err := m.Resolve(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, boom)
}

func TestManager_BindRotatesAndCarriesNotices(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	anon, err := m.Resolve(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.NoError(t, m.Enqueue(ctx, anon, store.NoticeSuccess, "first"))

	rec := httptest.NewRecorder()
	bound, err := m.Bind(ctx, rec, req, anon, "member-1")
	require.NoError(t, err)
	assert.NotEqual(t, anon.ID, bound.ID)
	assert.Equal(t, "member-1", bound.MemberID)
	sessionCookie(t, m, rec)

	_, err = s.GetSession(ctx, anon.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	require.NoError(t, m.Enqueue(ctx, bound, store.NoticeSuccess, "second"))
	notices, err := m.Drain(ctx, bound)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "first", notices[0].Text)
	assert.Equal(t, "second", notices[1].Text)
}

func TestManager_BindWithoutRotationKeepsID(t *testing.T) {
	m, s := newTestManager(t, false)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	anon, err := m.Resolve(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)

	bound, err := m.Bind(ctx, httptest.NewRecorder(), req, anon, "member-1")
	require.NoError(t, err)
	assert.Equal(t, anon.ID, bound.ID)

	stored, err := s.GetSession(ctx, anon.ID)
	require.NoError(t, err)
	assert.Equal(t, "member-1", stored.MemberID)

	// Binding again overwrites
	rebound, err := m.Bind(ctx, httptest.NewRecorder(), req, bound, "member-2")
	require.NoError(t, err)
	assert.Equal(t, "member-2", rebound.MemberID)

	unbound, err := m.Unbind(ctx, httptest.NewRecorder(), req, rebound)
	require.NoError(t, err)
	assert.False(t, unbound.Authenticated())
}

func TestManager_Unbind(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)

	anon, err := m.Resolve(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	bound, err := m.Bind(ctx, httptest.NewRecorder(), req, anon, "member-1")
	require.NoError(t, err)

	unbound, err := m.Unbind(ctx, httptest.NewRecorder(), req, bound)
	require.NoError(t, err)
	assert.False(t, unbound.Authenticated())
	assert.NotEqual(t, bound.ID, unbound.ID)

	_, err = s.GetSession(ctx, bound.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestManager_FailedRotationKeepsOldSession(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()
	boom := errors.New("disk gone")

	first := httptest.NewRecorder()
	anon, err := m.Resolve(ctx, first, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	oldCookie := sessionCookie(t, m, first)
	require.NoError(t, m.Enqueue(ctx, anon, store.NoticeError, "please log in"))

	s.FailWith("DeleteSession", boom)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(oldCookie)
	rec := httptest.NewRecorder()
	_, err = m.Bind(ctx, rec, req, anon, "member-1")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, rec.Result().Cookies(), "no cookie may be written for a failed rotation")

	s.FailWith("DeleteSession", nil)

	// The client still holds the anonymous session, notices included
	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(oldCookie)
	resolved, err := m.Resolve(ctx, httptest.NewRecorder(), again)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, resolved.ID)
	assert.False(t, resolved.Authenticated())

	notices, err := m.Drain(ctx, resolved)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "please log in", notices[0].Text)
}

func TestManager_FailedRotationRemovesNewSession(t *testing.T) {
	tests := []struct {
		name   string
		method string
	}{
		{name: "drain fails", method: "DrainNotices"},
		{name: "carry over fails", method: "PushNotice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s := newTestManager(t, true)
			ctx := context.Background()
			req := httptest.NewRequest(http.MethodPost, "/login", nil)

			anon, err := m.Resolve(ctx, httptest.NewRecorder(), req)
			require.NoError(t, err)
			require.NoError(t, m.Enqueue(ctx, anon, store.NoticeSuccess, "pending"))

			s.FailWith(tt.method, errors.New("write failed"))

			rec := httptest.NewRecorder()
			_, err = m.Bind(ctx, rec, req, anon, "member-1")
			require.Error(t, err)
			assert.Empty(t, rec.Result().Cookies())
			assert.Equal(t, 1, s.SessionCount())

			stored, err := s.GetSession(ctx, anon.ID)
			require.NoError(t, err)
			assert.False(t, stored.Authenticated())
		})
	}
}

func TestManager_FailedUnbindKeepsMemberLoggedIn(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()

	anon, err := m.Resolve(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	loginRec := httptest.NewRecorder()
	bound, err := m.Bind(ctx, loginRec, httptest.NewRequest(http.MethodPost, "/login", nil), anon, "member-1")
	require.NoError(t, err)
	boundCookie := sessionCookie(t, m, loginRec)

	s.FailWith("DeleteSession", errors.New("disk gone"))
	rec := httptest.NewRecorder()
	_, err = m.Unbind(ctx, rec, httptest.NewRequest(http.MethodGet, "/logout", nil), bound)
	require.Error(t, err)
	assert.Empty(t, rec.Result().Cookies())

	req := httptest.NewRequest(http.MethodGet, "/platform", nil)
	req.AddCookie(boundCookie)
	resolved, err := m.Resolve(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, bound.ID, resolved.ID)
	assert.Equal(t, "member-1", resolved.MemberID)
}

func TestManager_DrainTwice(t *testing.T) {
	m, _ := newTestManager(t, true)
	ctx := context.Background()

	sess, err := m.Resolve(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, m.Enqueue(ctx, sess, store.NoticeError, "a"))
	require.NoError(t, m.Enqueue(ctx, sess, store.NoticeSuccess, "b"))

	first, err := m.Drain(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []store.Notice{
		{Kind: store.NoticeError, Text: "a"},
		{Kind: store.NoticeSuccess, Text: "b"},
	}, first)

	second, err := m.Drain(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestManager_Sweep(t *testing.T) {
	m, s := newTestManager(t, true)
	ctx := context.Background()

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, err := m.Resolve(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Resolve(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	removed, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, s.SessionCount())
}

func TestManager_SecureCookies(t *testing.T) {
	signer, err := NewTokenSigner(testSecret)
	require.NoError(t, err)
	m := NewManager(store.NewMockStore(), signer, Config{SecureCookies: true})

	rec := httptest.NewRecorder()
	_, err = m.Resolve(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	cookie := sessionCookie(t, m, rec)
	assert.True(t, cookie.Secure)
	assert.Equal(t, DefaultCookieName, cookie.Name)
}
