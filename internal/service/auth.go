package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/store"
)

// MinPasswordLength is the shortest password accepted when provisioning.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidUsername    = errors.New("username must not be empty")
)

// AdminStore is the credential store used by AuthService.
type AdminStore interface {
	GetAdmin(ctx context.Context, username string) (*model.Admin, error)
	UpsertAdmin(ctx context.Context, username, passwordHash string) (bool, error)
}

// AuthService verifies admin credentials and issues session tokens.
type AuthService struct {
	admins AdminStore
	hasher PasswordHasher
	tokens *Tokens

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(admins AdminStore, hasher PasswordHasher, tokens *Tokens) *AuthService {
	return &AuthService{
		admins: admins,
		hasher: hasher,
		tokens: tokens,
	}
}

// Tokens returns the token issuer/verifier used by the service.
func (s *AuthService) Tokens() *Tokens { return s.tokens }

// Login checks username and password and returns a signed session token.
// Unknown users and wrong passwords both yield ErrInvalidCredentials; store
// failures (for example an unavailable database) are returned as is.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}

	admin, err := s.admins.GetAdmin(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same hashing time as for a real account.
		s.hasher.Compare(s.dummy(), password)
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, err
	}

	if err := s.hasher.Compare(admin.PasswordHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	return s.tokens.Issue(admin.Username)
}

// Verify checks a session token. See Tokens.Verify.
func (s *AuthService) Verify(token string) (*Identity, error) {
	return s.tokens.Verify(token)
}

// ProvisionAdmin creates the account or resets the password of an existing
// one. It reports whether the account was created.
func (s *AuthService) ProvisionAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return false, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	return s.admins.UpsertAdmin(ctx, username, hash)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("xyntoro-placeholder-password")
	})
	return s.dummyHash
}
