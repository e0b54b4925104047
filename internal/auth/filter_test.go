// ABOUTME: Tests for the authorization filter and principal context helpers
// ABOUTME: Flat role equality, no hierarchy

package auth

import (
	"context"
	"testing"

	"github.com/2389/pokercircle/internal/store"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		principal *store.Member
		required  store.Role
		wantErr   error
	}{
		{
			name:     "anonymous",
			required: store.RoleMember,
			wantErr:  ErrUnauthenticated,
		},
		{
			name:      "member on member route",
			principal: &store.Member{ID: "m", Role: store.RoleMember},
			required:  store.RoleMember,
		},
		{
			name:      "member on admin route",
			principal: &store.Member{ID: "m", Role: store.RoleMember},
			required:  store.RoleAdmin,
			wantErr:   ErrForbidden,
		},
		{
			name:      "admin on admin route",
			principal: &store.Member{ID: "a", Role: store.RoleAdmin},
			required:  store.RoleAdmin,
		},
		{
			// No hierarchy: admin is not a superset of member
			name:      "admin on member-only role check",
			principal: &store.Member{ID: "a", Role: store.RoleAdmin},
			required:  store.RoleMember,
			wantErr:   ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.required)
			if err != tt.wantErr {
				t.Errorf("Authorize() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != nil {
		t.Fatal("expected nil principal on empty context")
	}
	if IsAdmin(ctx) {
		t.Error("anonymous context should not be admin")
	}

	admin := &store.Member{ID: "a", Role: store.RoleAdmin}
	ctx = WithPrincipal(ctx, admin)
	if got := FromContext(ctx); got != admin {
		t.Errorf("FromContext() = %v, want %v", got, admin)
	}
	if !IsAdmin(ctx) {
		t.Error("admin principal should be admin")
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthenticated, MsgLoginRequired},
		{ErrForbidden, MsgAdminRequired},
		{missingField("name"), "missing required field: name"},
		{context.Canceled, MsgInternal},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := PublicMessage(tt.err); got != tt.want {
			t.Errorf("PublicMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
