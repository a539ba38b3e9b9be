// README: Config service; a write to alert_settings triggers a realtime broadcast.
package settings

import (
	"context"
	"time"

	"porter/internal/types"
)

const alertSettingsKey = "alert_settings"

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, updatedBy types.ID, at time.Time) error
	List(ctx context.Context) ([]Entry, error)
}

type Publisher interface {
	Publish(event string, payload any, scope string)
}

type Service struct {
	store Store
	pub   Publisher
	now   func() time.Time
}

func NewService(store Store, pub Publisher) *Service {
	return &Service{store: store, pub: pub, now: time.Now}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, key)
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.List(ctx)
}

func (s *Service) Set(ctx context.Context, key, value string, updatedBy types.ID) error {
	if err := s.store.Set(ctx, key, value, updatedBy, s.now()); err != nil {
		return err
	}
	if key == alertSettingsKey {
		s.pub.Publish("alert_settings_changed", map[string]any{"key": key}, "")
	}
	return nil
}
