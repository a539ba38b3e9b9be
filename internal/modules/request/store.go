// README: Request store backed by PostgreSQL; transitions run in a single transaction.
package request

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

const requestColumns = `
	id, origin_floor, room, patient_initials, destination, priority,
	special_needs, notes, status, status_version, created_by, assigned_to,
	created_at, assigned_at, accepted_at, en_route_at, with_patient_at,
	completed_at, cancelled_at`

func (s *PostgresStore) Create(ctx context.Context, r *TransportRequest, h *HistoryRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO transport_requests (
			id, origin_floor, room, patient_initials, destination, priority,
			special_needs, notes, status, status_version, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(r.ID), string(r.OriginFloor), r.Room, r.PatientInitials,
		r.Destination, string(r.Priority), r.SpecialNeeds, r.Notes,
		string(r.Status), r.StatusVersion, string(r.CreatedBy), r.CreatedAt,
	)
	if err != nil {
		return err
	}
	if err := appendHistory(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*TransportRequest, error) {
	row := s.db.QueryRow(ctx, `SELECT`+requestColumns+` FROM transport_requests WHERE id = $1`, string(id))
	return scanRequest(row)
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]*TransportRequest, error) {
	query := `SELECT` + requestColumns + ` FROM transport_requests`
	var args []any
	switch {
	case f.PendingQueue:
		// stat before routine, then oldest first: the matcher's ordering contract.
		query += ` WHERE status = 'pending' AND assigned_to IS NULL
			ORDER BY (priority = 'stat') DESC, created_at ASC`
	case f.ActiveOnly:
		query += ` WHERE status IN ('pending','assigned','accepted','en_route','with_patient')
			ORDER BY created_at ASC`
	case f.Status != "":
		query += ` WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, string(f.Status))
	case f.AssignedTo != "":
		query += ` WHERE assigned_to = $1 ORDER BY created_at DESC`
		args = append(args, string(f.AssignedTo))
	default:
		query += ` ORDER BY created_at DESC LIMIT 200`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TransportRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyTransition performs the conditional state-changing write. The UPDATE
// only matches while the row still holds (status, status_version) the caller
// read; zero rows affected means a concurrent writer got there first and the
// whole transaction is rolled back.
func (s *PostgresStore) ApplyTransition(ctx context.Context, t Transition, h *HistoryRecord) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var assignee *string
	if t.NewAssignee != nil {
		v := string(*t.NewAssignee)
		assignee = &v
	}
	tag, err := tx.Exec(ctx, `
		UPDATE transport_requests
		SET status = $1,
		    status_version = status_version + 1,
		    assigned_to = COALESCE($2, assigned_to),
		    assigned_at = CASE WHEN $1 = 'assigned' THEN $3 ELSE assigned_at END,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN $3 ELSE accepted_at END,
		    en_route_at = CASE WHEN $1 = 'en_route' THEN $3 ELSE en_route_at END,
		    with_patient_at = CASE WHEN $1 = 'with_patient' THEN $3 ELSE with_patient_at END,
		    completed_at = CASE WHEN $1 = 'complete' THEN $3 ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN $3 ELSE cancelled_at END
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(t.To), assignee, t.OccurredAt,
		string(t.RequestID), string(t.From), t.ExpectedVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := appendHistory(ctx, tx, h); err != nil {
		return false, err
	}
	if err := applyRosterEffect(ctx, tx, t); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) History(ctx context.Context, id types.ID) ([]HistoryRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, actor_id, from_status, to_status, created_at
		FROM request_status_history
		WHERE request_id = $1
		ORDER BY id ASC`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var h HistoryRecord
		if err := rows.Scan(&h.ID, &h.RequestID, &h.ActorID, &h.FromStatus, &h.ToStatus, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func appendHistory(ctx context.Context, tx pgx.Tx, h *HistoryRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO request_status_history (request_id, actor_id, from_status, to_status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(h.RequestID), string(h.ActorID), string(h.FromStatus), string(h.ToStatus), h.CreatedAt,
	)
	return err
}

// applyRosterEffect mirrors the transition onto the assignee's status row.
// With RosterOnlyIfIdle the user only returns to available when no other
// active request is still assigned to them.
func applyRosterEffect(ctx context.Context, tx pgx.Tx, t Transition) error {
	if t.RosterUserID == nil || t.RosterStatus == "" {
		return nil
	}
	uid := string(*t.RosterUserID)
	if t.RosterOnlyIfIdle {
		_, err := tx.Exec(ctx, `
			UPDATE transporter_status
			SET status = $1, updated_at = $2
			WHERE user_id = $3
			  AND NOT EXISTS (
				SELECT 1 FROM transport_requests
				WHERE assigned_to = $3
				  AND id <> $4
				  AND status IN ('assigned','accepted','en_route','with_patient')
			  )`,
			t.RosterStatus, t.OccurredAt, uid, string(t.RequestID),
		)
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO transporter_status (user_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		uid, t.RosterStatus, t.OccurredAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*TransportRequest, error) {
	var r TransportRequest
	var assignedTo *string
	var assignedAt, acceptedAt, enRouteAt, withPatientAt, completedAt, cancelledAt *time.Time

	err := row.Scan(
		&r.ID, &r.OriginFloor, &r.Room, &r.PatientInitials, &r.Destination,
		&r.Priority, &r.SpecialNeeds, &r.Notes, &r.Status, &r.StatusVersion,
		&r.CreatedBy, &assignedTo,
		&r.CreatedAt, &assignedAt, &acceptedAt, &enRouteAt, &withPatientAt,
		&completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if assignedTo != nil {
		v := types.ID(*assignedTo)
		r.AssignedTo = &v
	}
	r.AssignedAt = assignedAt
	r.AcceptedAt = acceptedAt
	r.EnRouteAt = enRouteAt
	r.WithPatientAt = withPatientAt
	r.CompletedAt = completedAt
	r.CancelledAt = cancelledAt
	return &r, nil
}
