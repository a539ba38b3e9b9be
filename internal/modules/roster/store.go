// README: Roster store: status rows in Postgres, liveness heartbeats in Redis with TTL.
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"porter/internal/types"
)

const heartbeatKeyPrefix = "porter:heartbeat:%s"

type Store struct {
	db           *pgxpool.Pool
	redis        *redis.Client
	heartbeatTTL time.Duration
}

func NewStore(db *pgxpool.Pool, rds *redis.Client, heartbeatTTL time.Duration) *Store {
	return &Store{db: db, redis: rds, heartbeatTTL: heartbeatTTL}
}

func (s *Store) Upsert(ctx context.Context, userID types.ID, status Status, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transporter_status (user_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		string(userID), string(status), at,
	)
	return err
}

func (s *Store) Get(ctx context.Context, userID types.ID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, status, updated_at FROM transporter_status WHERE user_id = $1`,
		string(userID))
	var r Record
	if err := row.Scan(&r.UserID, &r.Status, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `SELECT user_id, status, updated_at FROM transporter_status ORDER BY user_id`)
}

// ListAvailable returns available transporters oldest-status-first, which
// makes the matcher's FIFO pick deterministic.
func (s *Store) ListAvailable(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `
		SELECT user_id, status, updated_at FROM transporter_status
		WHERE status = 'available'
		ORDER BY updated_at ASC`)
}

func (s *Store) list(ctx context.Context, query string) ([]Record, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.UserID, &r.Status, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkOffline is conditional: it only fires while the row is not already
// offline, so repeated sweeps do not re-trigger downstream alerts.
func (s *Store) MarkOffline(ctx context.Context, userID types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE transporter_status
		SET status = 'offline', updated_at = $1
		WHERE user_id = $2 AND status <> 'offline'`,
		at, string(userID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Heartbeat refreshes the user's liveness key; expiry marks them stale.
func (s *Store) Heartbeat(ctx context.Context, userID types.ID) error {
	return s.redis.Set(ctx, heartbeatKey(userID), time.Now().UTC().Format(time.RFC3339), s.heartbeatTTL).Err()
}

// Alive reports whether the user's heartbeat key is still present.
func (s *Store) Alive(ctx context.Context, userID types.ID) (bool, error) {
	n, err := s.redis.Exists(ctx, heartbeatKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func heartbeatKey(userID types.ID) string {
	return fmt.Sprintf(heartbeatKeyPrefix, string(userID))
}
