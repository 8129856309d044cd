package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"budgetadvisor/internal/core"
)

var (
	ErrAlreadyExists      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooLong    = errors.New("password too long (max 72 bytes)")
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// CredentialService registers users and verifies their passwords.
// Plaintext passwords never leave this type.
type CredentialService struct {
	store CredentialStore
	cost  int
	// dummyHash is compared against when the user does not exist so that
	// unknown usernames take as long as wrong passwords.
	dummyHash []byte
}

func NewCredentialService(store CredentialStore) *CredentialService {
	return NewCredentialServiceWithCost(store, bcrypt.DefaultCost)
}

// NewCredentialServiceWithCost lets tests use bcrypt.MinCost.
func NewCredentialServiceWithCost(store CredentialStore, cost int) *CredentialService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("budgetadvisor-dummy"), cost)
	return &CredentialService{store: store, cost: cost, dummyHash: dummy}
}

// Create registers a new user and returns its identity.
func (s *CredentialService) Create(ctx context.Context, username, password string) (core.Identity, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return core.Identity{}, err
	}
	if err := checkPassword(password); err != nil {
		return core.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateUser(ctx, username, string(hash))
	if errors.Is(err, core.ErrUserExists) {
		return core.Identity{}, ErrAlreadyExists
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "component", "auth", "user_id", id.UserID)
	return id, nil
}

// Verify checks the password and returns the user's identity.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (core.Identity, error) {
	username, err := core.NormalizeUsername(username)
	if err != nil {
		return core.Identity{}, ErrInvalidCredentials
	}

	rec, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return core.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Password mismatch", "component", "auth", "user_id", rec.UserID)
		return core.Identity{}, ErrInvalidCredentials
	}
	return rec.Identity, nil
}

func checkPassword(password string) error {
	if password == "" {
		return core.ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
