// ABOUTME: Redis-backed SessionStore for deployments that share sessions across instances
// ABOUTME: Sessions are hashes with an absolute expiry; notices are JSON lists sharing that expiry

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis client.
var ErrRedisUnavailable = errors.New("redis unavailable")

// setMemberScript only touches sessions that still exist so an expired
// session cannot be resurrected as a memberless hash.
var setMemberScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "member_id", ARGV[1])
return 1
`)

// pushNoticeScript appends a notice and aligns the list expiry with its session.
var pushNoticeScript = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl == -2 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`)

// RedisSessionStore implements SessionStore on top of Redis.
type RedisSessionStore struct {
	redis  redis.UniversalClient
	prefix string
	logger *slog.Logger
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a session store using the given client.
// prefix namespaces every key, e.g. "pokercircle".
func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "pokercircle"
	}
	return &RedisSessionStore{
		redis:  client,
		prefix: prefix,
		logger: slog.Default().With("component", "store.redis"),
	}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisSessionStore) noticesKey(id string) string {
	return s.prefix + ":notices:" + id
}

// CreateSession stores the session hash with an absolute expiry.
func (s *RedisSessionStore) CreateSession(ctx context.Context, session *Session) error {
	key := s.sessionKey(session.ID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"member_id", session.MemberID,
			"created_at", formatTime(session.CreatedAt),
			"expires_at", formatTime(session.ExpiresAt),
		)
		pipe.ExpireAt(ctx, key, session.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetSession loads a session, returning ErrSessionNotFound once it has expired.
func (s *RedisSessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}

	session := &Session{
		ID:       id,
		MemberID: fields["member_id"],
	}
	if session.CreatedAt, err = parseTime("created_at", fields["created_at"]); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = parseTime("expires_at", fields["expires_at"]); err != nil {
		return nil, err
	}
	if !session.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SetSessionMember binds or unbinds the member on an existing session.
func (s *RedisSessionStore) SetSessionMember(ctx context.Context, id, memberID string) error {
	updated, err := setMemberScript.Run(ctx, s.redis, []string{s.sessionKey(id)}, memberID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if updated == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the session and its notices. Deleting a missing session is not an error.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.sessionKey(id), s.noticesKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis expires session and notice keys itself.
func (s *RedisSessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

// PushNotice appends a notice to the session's list.
func (s *RedisSessionStore) PushNotice(ctx context.Context, sessionID string, notice Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}

	keys := []string{s.sessionKey(sessionID), s.noticesKey(sessionID)}
	pushed, err := pushNoticeScript.Run(ctx, s.redis, keys, string(data)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pushed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DrainNotices reads and deletes the notice list in one MULTI/EXEC.
func (s *RedisSessionStore) DrainNotices(ctx context.Context, sessionID string) ([]Notice, error) {
	key := s.noticesKey(sessionID)

	var lrange *redis.StringSliceCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	raw := lrange.Val()
	notices := make([]Notice, 0, len(raw))
	for i, item := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			// A corrupt entry is dropped rather than blocking the rest of the queue
			s.logger.Warn("discarding undecodable notice", "session_index", strconv.Itoa(i), "error", err)
			continue
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// Ping checks the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.redis.Close()
}
