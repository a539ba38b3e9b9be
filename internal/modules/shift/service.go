// README: Shift service: start/end dispatcher sessions, force-end races resolve via conditional update.
package shift

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"porter/internal/types"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrConflict  = errors.New("session already ended")
	ErrForbidden = errors.New("actor may not end this session")
)

type Store interface {
	Insert(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id types.ID) (*Session, error)
	ListActive(ctx context.Context) ([]Session, error)
	End(ctx context.Context, id types.ID, at time.Time) (bool, error)
	DemotePrimary(ctx context.Context, exceptID types.ID) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type StartCommand struct {
	UserID    types.ID
	IsPrimary bool
	Contact   string
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Session, error) {
	sess := &Session{
		ID:        types.ID(uuid.NewString()),
		UserID:    cmd.UserID,
		IsPrimary: cmd.IsPrimary,
		Contact:   cmd.Contact,
		StartedAt: s.now(),
	}
	if err := s.store.Insert(ctx, sess); err != nil {
		return nil, err
	}
	if sess.IsPrimary {
		if err := s.store.DemotePrimary(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// End closes a session. The owner may end their own; supervisors and above
// may force-end anyone's. Losing the conditional update returns ErrConflict.
func (s *Service) End(ctx context.Context, id types.ID, actorID types.ID, actorRole types.Role) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != actorID && !actorRole.AtLeast(types.RoleSupervisor) {
		return ErrForbidden
	}
	ok, err := s.store.End(ctx, id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *Service) ListActive(ctx context.Context) ([]Session, error) {
	return s.store.ListActive(ctx)
}
