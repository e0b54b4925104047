// ABOUTME: Behavioural tests shared by every SessionStore implementation
// ABOUTME: Runs the same session and notice checks against SQLite, MockStore and Redis

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionStoreSuite exercises the SessionStore contract against one backend.
func sessionStoreSuite(t *testing.T, newStore func(t *testing.T) SessionStore) {
	t.Run("create and get anonymous session", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		sess := newTestSession("sess-anon", time.Hour)

		require.NoError(t, s.CreateSession(ctx, sess))

		got, err := s.GetSession(ctx, "sess-anon")
		require.NoError(t, err)
		assert.Empty(t, got.MemberID)
		assert.False(t, got.Authenticated())
		assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("unknown session", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetSession(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired session is not returned", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-old", -time.Minute)))

		_, err := s.GetSession(ctx, "sess-old")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("bind then unbind member", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-1", time.Hour)))

		require.NoError(t, s.SetSessionMember(ctx, "sess-1", "member-a"))
		got, err := s.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "member-a", got.MemberID)

		// Binding again overwrites the previous principal
		require.NoError(t, s.SetSessionMember(ctx, "sess-1", "member-b"))
		got, err = s.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "member-b", got.MemberID)

		require.NoError(t, s.SetSessionMember(ctx, "sess-1", ""))
		got, err = s.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		assert.False(t, got.Authenticated())
	})

	t.Run("bind on missing session", func(t *testing.T) {
		s := newStore(t)
		err := s.SetSessionMember(context.Background(), "ghost", "member-a")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("drain returns notices in order then nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-n", time.Hour)))

		want := []Notice{
			{Kind: NoticeSuccess, Text: "welcome"},
			{Kind: NoticeError, Text: "event not found"},
			{Kind: NoticeSuccess, Text: "third"},
		}
		for _, n := range want {
			require.NoError(t, s.PushNotice(ctx, "sess-n", n))
		}

		got, err := s.DrainNotices(ctx, "sess-n")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		again, err := s.DrainNotices(ctx, "sess-n")
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("notices are scoped to their session", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-a", time.Hour)))
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-b", time.Hour)))

		require.NoError(t, s.PushNotice(ctx, "sess-a", Notice{Kind: NoticeSuccess, Text: "for a"}))

		got, err := s.DrainNotices(ctx, "sess-b")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.DrainNotices(ctx, "sess-a")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "for a", got[0].Text)
	})

	t.Run("push on missing session", func(t *testing.T) {
		s := newStore(t)
		err := s.PushNotice(context.Background(), "ghost", Notice{Kind: NoticeError, Text: "x"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete session drops its notices", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-d", time.Hour)))
		require.NoError(t, s.PushNotice(ctx, "sess-d", Notice{Kind: NoticeSuccess, Text: "bye"}))

		require.NoError(t, s.DeleteSession(ctx, "sess-d"))

		_, err := s.GetSession(ctx, "sess-d")
		assert.ErrorIs(t, err, ErrSessionNotFound)

		got, err := s.DrainNotices(ctx, "sess-d")
		require.NoError(t, err)
		assert.Empty(t, got)

		// Deleting twice is fine
		require.NoError(t, s.DeleteSession(ctx, "sess-d"))
	})

	t.Run("concurrent drains deliver each notice once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateSession(ctx, newTestSession("sess-c", time.Hour)))
		for i := 0; i < 20; i++ {
			require.NoError(t, s.PushNotice(ctx, "sess-c", Notice{Kind: NoticeSuccess, Text: "n"}))
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		total := 0
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := s.DrainNotices(ctx, "sess-c")
				if err != nil {
					t.Errorf("DrainNotices failed: %v", err)
					return
				}
				mu.Lock()
				total += len(got)
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 20, total)
	})
}

func TestSQLiteStore_SessionStore(t *testing.T) {
	sessionStoreSuite(t, func(t *testing.T) SessionStore {
		s := newTestStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMockStore_SessionStore(t *testing.T) {
	sessionStoreSuite(t, func(t *testing.T) SessionStore {
		return NewMockStore()
	})
}

func TestSQLiteStore_DeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newTestSession("live", time.Hour)))
	require.NoError(t, store.CreateSession(ctx, newTestSession("dead-1", -time.Hour)))
	require.NoError(t, store.CreateSession(ctx, newTestSession("dead-2", -time.Minute)))
	require.NoError(t, store.PushNotice(ctx, "dead-1", Notice{Kind: NoticeError, Text: "stale"}))

	count, err := store.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.GetSession(ctx, "live")
	assert.NoError(t, err)

	var orphaned int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM session_notices").Scan(&orphaned))
	assert.Zero(t, orphaned)
}

func newTestSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
