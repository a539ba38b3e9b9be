// README: Reporting queries over completed transport requests.
package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Summary struct {
	From, To         time.Time
	Created          int
	Completed        int
	Cancelled        int
	StatCompleted    int
	AvgCycleSeconds  float64
	AvgPendingWaitS  float64
}

type CompletedRow struct {
	RequestID    string
	OriginFloor  string
	Room         int
	Destination  string
	Priority     string
	AssignedTo   string
	CreatedAt    time.Time
	CompletedAt  time.Time
	CycleSeconds int
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at BETWEEN $1 AND $2),
			COUNT(*) FILTER (WHERE status = 'complete' AND completed_at BETWEEN $1 AND $2),
			COUNT(*) FILTER (WHERE status = 'cancelled' AND cancelled_at BETWEEN $1 AND $2),
			COUNT(*) FILTER (WHERE status = 'complete' AND priority = 'stat' AND completed_at BETWEEN $1 AND $2),
			COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - created_at))
				FILTER (WHERE status = 'complete' AND completed_at BETWEEN $1 AND $2), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM assigned_at - created_at))
				FILTER (WHERE assigned_at IS NOT NULL AND created_at BETWEEN $1 AND $2), 0)
		FROM transport_requests`, from, to)

	sum := &Summary{From: from, To: to}
	err := row.Scan(&sum.Created, &sum.Completed, &sum.Cancelled, &sum.StatCompleted,
		&sum.AvgCycleSeconds, &sum.AvgPendingWaitS)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *PostgresStore) CompletedBetween(ctx context.Context, from, to time.Time) ([]CompletedRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, origin_floor, room, destination, priority,
		       COALESCE(assigned_to, ''), created_at, completed_at,
		       EXTRACT(EPOCH FROM completed_at - created_at)::int
		FROM transport_requests
		WHERE status = 'complete' AND completed_at BETWEEN $1 AND $2
		ORDER BY completed_at ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CompletedRow
	for rows.Next() {
		var r CompletedRow
		if err := rows.Scan(&r.RequestID, &r.OriginFloor, &r.Room, &r.Destination,
			&r.Priority, &r.AssignedTo, &r.CreatedAt, &r.CompletedAt, &r.CycleSeconds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
