// README: Roster service: self-service status updates, heartbeats, presence queries.
package roster

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"porter/internal/types"
)

var ErrBadStatus = errors.New("status not settable by transporter")

type Publisher interface {
	Publish(event string, payload any, scope string)
}

type Service struct {
	store *Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store *Store, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, pub: pub, log: log, now: time.Now}
}

// SetStatus applies a transporter's own status change. Assignment-derived
// statuses are rejected here; those flow through the lifecycle engine.
func (s *Service) SetStatus(ctx context.Context, userID types.ID, status Status) error {
	if !SelfSettable(status) {
		return ErrBadStatus
	}
	now := s.now()
	if err := s.store.Upsert(ctx, userID, status, now); err != nil {
		return err
	}
	s.pub.Publish("transporter_status_changed", map[string]any{
		"user_id": userID,
		"status":  status,
	}, "")
	return nil
}

func (s *Service) Heartbeat(ctx context.Context, userID types.ID) error {
	return s.store.Heartbeat(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID types.ID) (*Record, error) {
	return s.store.Get(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

func (s *Service) ListAvailable(ctx context.Context) ([]Record, error) {
	return s.store.ListAvailable(ctx)
}

func (s *Service) Alive(ctx context.Context, userID types.ID) (bool, error) {
	return s.store.Alive(ctx, userID)
}

// MarkOffline flips a stale user offline and broadcasts the change. The
// conditional write means only the first sweep to notice emits an event.
func (s *Service) MarkOffline(ctx context.Context, userID types.ID) (bool, error) {
	changed, err := s.store.MarkOffline(ctx, userID, s.now())
	if err != nil {
		return false, err
	}
	if changed {
		s.pub.Publish("transporter_status_changed", map[string]any{
			"user_id": userID,
			"status":  StatusOffline,
		}, "")
	}
	return changed, nil
}
