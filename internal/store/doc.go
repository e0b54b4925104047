// Package store provides persistent storage for pokercircle.
//
// # Architecture
//
// The store package is interface-driven:
//
//   - MemberStore: members and their password credentials
//   - SessionStore: browser sessions and their queued flash notices
//   - EventStore: the club event calendar
//   - LogStore: per-member game results
//   - Store: MemberStore + EventStore + LogStore plus Ping and Close
//
// SQLiteStore implements Store and SessionStore in a single struct.
// RedisSessionStore implements only SessionStore, for deployments that run
// several web instances against a shared Redis.
//
// # Data Models
//
//   - Member: the authenticated principal (member number, display name, role)
//   - Credential: bcrypt password hash, 1:1 with Member, written in the same
//     transaction as the member row
//   - Session: opaque ID with an optional weak reference to a Member
//   - Notice: one-shot flash message (success or error)
//   - Event: scheduled club event with a markdown description
//   - Log: one game result with derived total point and bp
//
// # SQLite Configuration
//
// Pragmas are set in the DSN so every pooled connection gets them:
//
//	_pragma=foreign_keys(1)
//	_pragma=busy_timeout(5000)
//	_pragma=journal_mode(WAL)
//
// Timestamps are stored as UTC RFC3339 text so date windows are plain string
// comparisons.
//
// # Flash Notices
//
// Notices are drained atomically. SQLite uses DELETE ... RETURNING; Redis uses
// a MULTI/EXEC of LRANGE and DEL. A second drain with nothing enqueued in
// between always returns an empty slice.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - ErrMemberExists: member number already registered
//   - ErrSessionNotFound: session unknown or expired
//   - ErrRedisUnavailable: Redis transport failure
//
// # Testing
//
// Use NewMockStore() for handler tests; FailWith injects errors per method.
// Use NewSQLiteStore with a temp dir for integration tests, and miniredis for
// RedisSessionStore.
package store
