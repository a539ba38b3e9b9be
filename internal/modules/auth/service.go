// README: Login/logout and token authentication.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"porter/internal/types"
)

var ErrUnauthenticated = errors.New("missing, invalid, or expired credentials")

type Store interface {
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id types.ID) (*User, error)
	InsertToken(ctx context.Context, t Token) error
	TokenByValue(ctx context.Context, token string) (*Token, error)
	DeleteToken(ctx context.Context, token string) error
}

type Service struct {
	store    Store
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(store Store, tokenTTL time.Duration) *Service {
	return &Service{store: store, tokenTTL: tokenTTL, now: time.Now}
}

// Login verifies credentials and issues an opaque token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if !u.Active {
		return "", nil, ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrUnauthenticated
	}

	t := Token{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.store.InsertToken(ctx, t); err != nil {
		return "", nil, err
	}
	return t.Token, u, nil
}

// Authenticate resolves a token to an active user, rejecting expired tokens.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	t, err := s.store.TokenByValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.now().After(t.ExpiresAt) {
		return nil, ErrUnauthenticated
	}
	u, err := s.store.UserByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteToken(ctx, token)
}
