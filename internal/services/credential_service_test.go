package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"budgetadvisor/internal/core"
	"budgetadvisor/internal/storage/memory"
)

func newCredentials(t *testing.T) (*CredentialService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewCredentialServiceWithCost(store, bcrypt.MinCost), store
}

func TestCredentialCreateAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, store := newCredentials(t)

	id, err := svc.Create(ctx, "  alice ", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "alice", id.Username)

	rec, err := store.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", rec.PasswordHash, "plaintext must never be stored")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("s3cret")))

	got, err := svc.Verify(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestCredentialCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCredentials(t)

	_, err := svc.Create(ctx, "alice", "one")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "two")
	require.ErrorIs(t, err, ErrAlreadyExists)

	// the original password still works
	_, err = svc.Verify(ctx, "alice", "one")
	require.NoError(t, err)
}

func TestCredentialVerifyFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCredentials(t)
	_, err := svc.Create(ctx, "alice", "right")
	require.NoError(t, err)

	cases := []struct{ user, pass string }{
		{"alice", "wrong"},
		{"alice", ""},
		{"bob", "right"},
		{"", "right"},
	}
	for _, tc := range cases {
		_, err := svc.Verify(ctx, tc.user, tc.pass)
		require.ErrorIs(t, err, ErrInvalidCredentials, "user=%q pass=%q", tc.user, tc.pass)
	}
}

func TestCredentialCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCredentials(t)

	_, err := svc.Create(ctx, " ", "pw")
	require.ErrorIs(t, err, core.ErrEmptyUsername)
	_, err = svc.Create(ctx, "alice", "")
	require.ErrorIs(t, err, core.ErrEmptyPassword)
	_, err = svc.Create(ctx, "alice", strings.Repeat("x", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

type failingCredentialStore struct{}

func (failingCredentialStore) CreateUser(context.Context, string, string) (core.Identity, error) {
	return core.Identity{}, errors.New("disk full")
}

func (failingCredentialStore) UserByUsername(context.Context, string) (core.UserRecord, error) {
	return core.UserRecord{}, errors.New("disk full")
}

func TestCredentialStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	svc := NewCredentialServiceWithCost(failingCredentialStore{}, bcrypt.MinCost)

	_, err := svc.Create(ctx, "alice", "pw")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyExists)
	require.Contains(t, err.Error(), "disk full")

	_, err = svc.Verify(ctx, "alice", "pw")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}
