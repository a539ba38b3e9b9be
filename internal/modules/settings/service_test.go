// README: Config service tests; alert_settings writes broadcast a change event.
package settings

import (
	"context"
	"testing"
	"time"

	"porter/internal/types"
)

type memStore struct {
	entries map[string]Entry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]Entry)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	e, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return e.Value, nil
}

func (m *memStore) Set(_ context.Context, key, value string, updatedBy types.ID, at time.Time) error {
	m.entries[key] = Entry{Key: key, Value: value, UpdatedBy: updatedBy, UpdatedAt: at}
	return nil
}

func (m *memStore) List(_ context.Context) ([]Entry, error) {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

type eventRecorder struct {
	events []string
}

func (r *eventRecorder) Publish(event string, _ any, _ string) {
	r.events = append(r.events, event)
}

func TestSetAndGet(t *testing.T) {
	store := newMemStore()
	rec := &eventRecorder{}
	svc := NewService(store, rec)
	ctx := context.Background()

	if err := svc.Set(ctx, "claim_direct_accept", "false", "mgr1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := svc.Get(ctx, "claim_direct_accept")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "false" {
		t.Fatalf("value = %q, want false", got)
	}
	if len(rec.events) != 0 {
		t.Fatalf("plain keys must not broadcast, got %v", rec.events)
	}
}

func TestSetAlertSettingsBroadcasts(t *testing.T) {
	store := newMemStore()
	rec := &eventRecorder{}
	svc := NewService(store, rec)

	if err := svc.Set(context.Background(), "alert_settings", `{"pending_timeout_s":120}`, "mgr1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0] != "alert_settings_changed" {
		t.Fatalf("expected alert_settings_changed broadcast, got %v", rec.events)
	}
}

func TestGetMissingKey(t *testing.T) {
	svc := NewService(newMemStore(), &eventRecorder{})
	if _, err := svc.Get(context.Background(), "absent"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
