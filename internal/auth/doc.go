// Package auth provides authentication and authorization for pokercircle.
//
// # Authentication Gate
//
// Members log in with a member number and password:
//
//	gate := auth.NewGate(store, auth.GateConfig{
//		MinPasswordLength: 8,
//		Limiter:           auth.NewLoginLimiter(5, time.Minute),
//	})
//	member, err := gate.Authenticate(ctx, "1001", password)
//
// ErrUnknownMember and ErrInvalidCredentials are distinct for logging but
// share one public message, and an unknown member number still pays for a
// bcrypt comparison against a fixed dummy hash.
//
// Register validates input (ErrMissingField, ErrMissingPassword,
// ErrPasswordTooShort, ErrInvalidRole) before hashing, then creates the member
// and credential in one store call. A taken member number yields
// ErrDuplicateMember and leaves nothing behind.
//
// # Failed-Login Limiter
//
// LoginLimiter keeps a token bucket (golang.org/x/time/rate) per submitted
// member number. Each failure spends a token; an empty bucket refuses the
// attempt with ErrTooManyAttempts before the store is read. Success clears the
// key. Prune is called by the server janitor to drop idle keys.
//
// # Authorization Filter
//
// Authorize compares a principal's role with the required role by equality:
//
//	auth.Authorize(nil, store.RoleAdmin)    // ErrUnauthenticated
//	auth.Authorize(member, store.RoleAdmin) // ErrForbidden unless member.Role == admin
//
// There is no role hierarchy.
//
// # Public Messages
//
// PublicMessage turns any of the package's errors into the text shown to the
// member. Unrecognised errors become "something went wrong".
package auth
