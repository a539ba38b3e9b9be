// README: Dispatcher session store backed by PostgreSQL.
package shift

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

func (s *PostgresStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO dispatcher_sessions (id, user_id, is_primary, contact, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(sess.ID), string(sess.UserID), sess.IsPrimary, sess.Contact, sess.StartedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, is_primary, contact, started_at, ended_at
		FROM dispatcher_sessions WHERE id = $1`, string(id))
	var sess Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.IsPrimary, &sess.Contact, &sess.StartedAt, &sess.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, is_primary, contact, started_at, ended_at
		FROM dispatcher_sessions WHERE ended_at IS NULL ORDER BY started_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.IsPrimary, &sess.Contact, &sess.StartedAt, &sess.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// End is conditional on the session still being open; zero rows affected
// means another writer ended it first.
func (s *PostgresStore) End(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE dispatcher_sessions SET ended_at = $1
		WHERE id = $2 AND ended_at IS NULL`, at, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DemotePrimary clears the primary flag on any other open session, keeping at
// most one primary dispatcher per shift.
func (s *PostgresStore) DemotePrimary(ctx context.Context, exceptID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE dispatcher_sessions SET is_primary = FALSE
		WHERE ended_at IS NULL AND is_primary = TRUE AND id <> $1`, string(exceptID))
	return err
}
