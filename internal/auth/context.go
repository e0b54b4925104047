// ABOUTME: Request context helpers for the authenticated principal
// ABOUTME: Provides WithPrincipal/FromContext for handlers behind the authentication gate

package auth

import (
	"context"

	"github.com/2389/pokercircle/internal/store"
)

// principalKey is the key type for storing the principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with member attached.
func WithPrincipal(ctx context.Context, member *store.Member) context.Context {
	return context.WithValue(ctx, principalKey{}, member)
}

// FromContext retrieves the principal, returning nil for anonymous requests.
func FromContext(ctx context.Context) *store.Member {
	member, _ := ctx.Value(principalKey{}).(*store.Member)
	return member
}

// IsAdmin reports whether the request's principal holds the admin role.
func IsAdmin(ctx context.Context) bool {
	return Authorize(FromContext(ctx), store.RoleAdmin) == nil
}
