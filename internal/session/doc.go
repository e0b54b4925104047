// Package session manages browser sessions and the flash notice channel.
//
// The cookie carries an HS256 token (github.com/golang-jwt/jwt/v5) whose
// subject is an opaque 32-byte session ID. Session state lives server-side in
// a store.SessionStore (SQLite or Redis).
//
// Resolve never fails on bad input: a missing, tampered, expired or unknown
// token silently starts a new anonymous session. Bind and Unbind return the
// session to use for the rest of the request, since with RotateOnAuth the ID
// is replaced and pending notices are carried to the new session.
//
// Notices queued with Enqueue are returned once, in order, by Drain.
package session
