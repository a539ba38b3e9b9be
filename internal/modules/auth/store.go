// README: Auth store backed by PostgreSQL (users and opaque tokens).
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"porter/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, display_name, role, active, password_hash
		FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *PostgresStore) UserByID(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, display_name, role, active, password_hash
		FROM users WHERE id = $1`, string(id))
	return scanUser(row)
}

func (s *PostgresStore) InsertToken(ctx context.Context, t Token) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO auth_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		t.Token, string(t.UserID), t.ExpiresAt)
	return err
}

func (s *PostgresStore) TokenByValue(ctx context.Context, token string) (*Token, error) {
	row := s.db.QueryRow(ctx, `
		SELECT token, user_id, expires_at FROM auth_tokens WHERE token = $1`, token)
	var t Token
	err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE token = $1`, token)
	return err
}

func (s *PostgresStore) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, now)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role int
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.Active, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	return &u, nil
}
