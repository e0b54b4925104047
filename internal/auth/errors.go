// ABOUTME: Sentinel errors for authentication, registration and authorization
// ABOUTME: PublicMessage maps them to the text shown to members

package auth

import (
	"errors"
	"fmt"
)

// Authentication failures. Both map to the same public message so a caller
// cannot tell whether a member number exists.
var (
	ErrUnknownMember      = errors.New("unknown member")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
)

// Registration validation failures.
var (
	ErrMissingField     = errors.New("missing required field")
	ErrMissingPassword  = errors.New("missing password")
	ErrPasswordTooShort = errors.New("password too short")
	ErrInvalidRole      = errors.New("invalid role")
	ErrDuplicateMember  = errors.New("member number already registered")
)

// Authorization failures.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Public messages.
const (
	MsgBadCredentials  = "member number or password is incorrect"
	MsgTooManyAttempts = "too many failed attempts, please wait and try again"
	MsgLoginRequired   = "please log in"
	MsgAdminRequired   = "administrator privileges required"
	MsgDuplicateMember = "that member number is already registered"
	MsgMissingPassword = "please enter a password"
	MsgInternal        = "something went wrong"
)

// PublicMessage returns the member-facing text for err.
// Anything not recognised gets the generic message.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownMember), errors.Is(err, ErrInvalidCredentials):
		return MsgBadCredentials
	case errors.Is(err, ErrTooManyAttempts):
		return MsgTooManyAttempts
	case errors.Is(err, ErrUnauthenticated):
		return MsgLoginRequired
	case errors.Is(err, ErrForbidden):
		return MsgAdminRequired
	case errors.Is(err, ErrDuplicateMember):
		return MsgDuplicateMember
	case errors.Is(err, ErrMissingPassword):
		return MsgMissingPassword
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrInvalidRole):
		// These wrap a detail that is safe to show
		return err.Error()
	default:
		return MsgInternal
	}
}

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
