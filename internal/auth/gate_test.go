// ABOUTME: Tests for the authentication gate against the mock store
// ABOUTME: Covers login outcomes, identical failure messages, registration validation and the limiter

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/pokercircle/internal/store"
)

func newTestGate(t *testing.T, limiter *LoginLimiter) (*Gate, *store.MockStore) {
	t.Helper()

	s := store.NewMockStore()
	gate := NewGate(s, GateConfig{
		MinPasswordLength: 8,
		Limiter:           limiter,
		Hasher:            NewBcryptHasher(bcrypt.MinCost),
	})
	return gate, s
}

func registerTestMember(t *testing.T, gate *Gate, number string, role store.Role) *store.Member {
	t.Helper()

	member, err := gate.Register(context.Background(), RegisterInput{
		MemberNumber: number,
		DisplayName:  "Player " + number,
		Role:         role,
		Password:     "correct-horse",
	})
	require.NoError(t, err)
	return member
}

func TestGate_Authenticate_Success(t *testing.T) {
	gate, _ := newTestGate(t, nil)
	registered := registerTestMember(t, gate, "1001", store.RoleMember)

	member, err := gate.Authenticate(context.Background(), "1001", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, member.ID)
	assert.Equal(t, store.RoleMember, member.Role)
}

func TestGate_Authenticate_FailuresShareMessage(t *testing.T) {
	gate, _ := newTestGate(t, nil)
	registerTestMember(t, gate, "1001", store.RoleMember)
	ctx := context.Background()

	_, unknownErr := gate.Authenticate(ctx, "9999", "correct-horse")
	require.ErrorIs(t, unknownErr, ErrUnknownMember)

	_, wrongErr := gate.Authenticate(ctx, "1001", "wrong-password")
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)

	assert.Equal(t, PublicMessage(unknownErr), PublicMessage(wrongErr))
	assert.Equal(t, MsgBadCredentials, PublicMessage(unknownErr))
}

func TestGate_Authenticate_MissingInput(t *testing.T) {
	gate, _ := newTestGate(t, nil)
	ctx := context.Background()

	_, err := gate.Authenticate(ctx, "  ", "password")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = gate.Authenticate(ctx, "1001", "")
	assert.ErrorIs(t, err, ErrMissingPassword)
}

func TestGate_Authenticate_StoreFailure(t *testing.T) {
	gate, s := newTestGate(t, nil)
	boom := errors.New("disk on fire")
	s.FailWith("GetMemberByNumber", boom)

	_, err := gate.Authenticate(context.Background(), "1001", "correct-horse")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnknownMember)
	assert.Equal(t, MsgInternal, PublicMessage(err))
}

func TestGate_Authenticate_LimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewLoginLimiter(3, time.Hour)
	gate, _ := newTestGate(t, limiter)
	registerTestMember(t, gate, "1001", store.RoleMember)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := gate.Authenticate(ctx, "1001", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the right password is refused once the bucket is empty
	_, err := gate.Authenticate(ctx, "1001", "correct-horse")
	require.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, MsgTooManyAttempts, PublicMessage(err))

	// Other member numbers are unaffected
	registerTestMember(t, gate, "2002", store.RoleMember)
	_, err = gate.Authenticate(ctx, "2002", "correct-horse")
	assert.NoError(t, err)
}

func TestGate_Authenticate_SuccessResetsLimiter(t *testing.T) {
	limiter := NewLoginLimiter(2, time.Hour)
	gate, _ := newTestGate(t, limiter)
	registerTestMember(t, gate, "1001", store.RoleMember)
	ctx := context.Background()

	_, err := gate.Authenticate(ctx, "1001", "wrong-password")
	require.Error(t, err)
	_, err = gate.Authenticate(ctx, "1001", "correct-horse")
	require.NoError(t, err)

	assert.Zero(t, limiter.Len())
}

func TestGate_Register_Validation(t *testing.T) {
	gate, s := newTestGate(t, nil)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing member number", RegisterInput{DisplayName: "A", Role: store.RoleMember, Password: "long-enough"}, ErrMissingField},
		{"missing name", RegisterInput{MemberNumber: "1", Role: store.RoleMember, Password: "long-enough"}, ErrMissingField},
		{"missing role", RegisterInput{MemberNumber: "1", DisplayName: "A", Password: "long-enough"}, ErrMissingField},
		{"bad role", RegisterInput{MemberNumber: "1", DisplayName: "A", Role: "owner", Password: "long-enough"}, ErrInvalidRole},
		{"missing password", RegisterInput{MemberNumber: "1", DisplayName: "A", Role: store.RoleMember}, ErrMissingPassword},
		{"short password", RegisterInput{MemberNumber: "1", DisplayName: "A", Role: store.RoleMember, Password: "short"}, ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.Register(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NotEqual(t, MsgInternal, PublicMessage(err))
		})
	}

	count, err := s.CountMembers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGate_Register_DuplicateCreatesNoCredential(t *testing.T) {
	gate, s := newTestGate(t, nil)
	registerTestMember(t, gate, "1001", store.RoleMember)

	_, err := gate.Register(context.Background(), RegisterInput{
		MemberNumber: "1001",
		DisplayName:  "Impostor",
		Role:         store.RoleAdmin,
		Password:     "another-password",
	})
	require.ErrorIs(t, err, ErrDuplicateMember)
	assert.Equal(t, MsgDuplicateMember, PublicMessage(err))
	assert.Equal(t, 1, s.CountCredentials())

	// The original password still works
	_, err = gate.Authenticate(context.Background(), "1001", "correct-horse")
	assert.NoError(t, err)
}

func TestGate_Register_StoresHashNotPassword(t *testing.T) {
	gate, s := newTestGate(t, nil)
	member := registerTestMember(t, gate, "1001", store.RoleAdmin)

	cred, err := s.GetCredential(context.Background(), member.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", cred.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("correct-horse")))
}
