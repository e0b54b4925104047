// ABOUTME: Authorization filter comparing a principal's role against a required role
// ABOUTME: Roles are flat: only an exact match passes

package auth

import "github.com/2389/pokercircle/internal/store"

// Authorize returns ErrUnauthenticated when principal is nil and
// ErrForbidden when its role is not exactly required.
func Authorize(principal *store.Member, required store.Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if principal.Role != required {
		return ErrForbidden
	}
	return nil
}
