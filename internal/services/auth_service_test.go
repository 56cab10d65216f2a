package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gobear/internal/config"
	"gobear/internal/storage"
)

// fakeBlacklist is an in-memory TokenBlacklist for tests.
type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]struct{})}
}

func (f *fakeBlacklist) Add(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = struct{}{}
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[jti]
	return ok, nil
}

func newAuthService(t *testing.T) (AuthService, *fakeBlacklist) {
	t.Helper()

	db := newTestDB(t)
	blacklist := newFakeBlacklist()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecretKey: "test-secret",
			JWTExpiry:    15 * time.Minute,
		},
	}
	return NewAuthService(storage.NewGormUserRepository(db), blacklist, cfg), blacklist
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := newAuthService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", "Alice", "Alice@Example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "alice@example.com", user.EmailLower)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	// Login works by username and by email, case-insensitively for email.
	token, got, err := service.Login(ctx, "alice", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID, got.ID)

	_, _, err = service.Login(ctx, "ALICE@example.COM", "hunter2hunter2")
	require.NoError(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	service, _ := newAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", "", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = service.Register(ctx, "alice", "", "other@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	// Email collisions are case-insensitive.
	_, err = service.Register(ctx, "alice2", "", "ALICE@EXAMPLE.COM", "hunter2hunter2")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	service, _ := newAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "  ", "", "a@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Register(ctx, "alice", "", "a@example.com", "short")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Register(ctx, "alice", "", "not-an-email", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginFailures(t *testing.T) {
	service, _ := newAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", "", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	// Unknown account and wrong password are indistinguishable.
	_, _, err = service.Login(ctx, "nobody", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = service.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	service, blacklist := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, service.Logout(ctx, "some-jti", time.Now().Add(time.Hour)))
	revoked, err := blacklist.IsBlacklisted(ctx, "some-jti")
	require.NoError(t, err)
	require.True(t, revoked)

	require.ErrorIs(t, service.Logout(ctx, "", time.Now()), ErrInvalidInput)
}
