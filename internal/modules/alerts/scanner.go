// README: Periodic SLA sweep: cycle-time, pending/acceptance timeouts, break and offline alerts.
package alerts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"porter/internal/modules/request"
	"porter/internal/modules/roster"
	"porter/internal/types"
)

const (
	KindPendingTimeout    = "pending_timeout"
	KindStatTimeout       = "stat_timeout"
	KindAcceptanceTimeout = "acceptance_timeout"
	KindCycleTime         = "cycle_time"
	KindBreak             = "break"
	KindOffline           = "offline"
)

type RequestSource interface {
	List(ctx context.Context, f request.ListFilter) ([]*request.TransportRequest, error)
}

type RosterSource interface {
	List(ctx context.Context) ([]roster.Record, error)
	Alive(ctx context.Context, userID types.ID) (bool, error)
	MarkOffline(ctx context.Context, userID types.ID) (bool, error)
}

type SettingsSource interface {
	Current(ctx context.Context) (Settings, error)
}

type Publisher interface {
	Publish(event string, payload any, scope string)
}

// Scanner recomputes alert conditions each tick. Its only state is the
// in-memory cooldown cache, which is deliberately lost on restart.
type Scanner struct {
	requests RequestSource
	roster   RosterSource
	settings SettingsSource
	pub      Publisher
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

func NewScanner(requests RequestSource, rosterSrc RosterSource, settings SettingsSource, pub Publisher, log *zap.Logger, interval time.Duration) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		requests:  requests,
		roster:    rosterSrc,
		settings:  settings,
		pub:       pub,
		log:       log,
		interval:  interval,
		now:       time.Now,
		lastAlert: make(map[string]time.Time),
	}
}

// Run sweeps until the context is cancelled. The next sweep is scheduled only
// after the previous one finishes, so sweeps never overlap. A failed sweep is
// logged and the loop continues.
func (s *Scanner) Run(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error("alert sweep failed", zap.Error(err))
			}
			timer.Reset(s.interval)
		}
	}
}

// Sweep runs one full alert evaluation pass.
func (s *Scanner) Sweep(ctx context.Context) error {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	s.pruneCooldowns(cfg, now)

	if err := s.sweepRequests(ctx, cfg, now); err != nil {
		return err
	}
	return s.sweepRoster(ctx, cfg, now)
}

// pruneCooldowns evicts entries past the cooldown window, so the cache does
// not grow with completed requests and departed users. An evicted entry would
// no longer suppress anything anyway.
func (s *Scanner) pruneCooldowns(cfg Settings, now time.Time) {
	s.mu.Lock()
	for key, last := range s.lastAlert {
		if now.Sub(last) >= cfg.Cooldown() {
			delete(s.lastAlert, key)
		}
	}
	s.mu.Unlock()
}

func (s *Scanner) sweepRequests(ctx context.Context, cfg Settings, now time.Time) error {
	active, err := s.requests.List(ctx, request.ListFilter{ActiveOnly: true})
	if err != nil {
		return err
	}
	for _, r := range active {
		stageElapsed := now.Sub(r.MilestoneAt())

		switch r.Status {
		case request.StatusPending:
			kind, threshold := KindPendingTimeout, cfg.PendingTimeout()
			if r.Priority == request.PriorityStat {
				kind, threshold = KindStatTimeout, cfg.StatPendingTimeout()
			}
			s.emitRequestAlert(kind, r, stageElapsed, threshold, cfg, now)
		case request.StatusAssigned:
			s.emitRequestAlert(KindAcceptanceTimeout, r, stageElapsed, cfg.AcceptanceTimeout(), cfg, now)
		}

		cycle := now.Sub(r.CreatedAt)
		cycleMax := cfg.CycleTime()
		if r.Priority == request.PriorityStat {
			cycleMax = cfg.StatCycleTime()
		}
		s.emitRequestAlert(KindCycleTime, r, cycle, cycleMax, cfg, now)
	}
	return nil
}

func (s *Scanner) sweepRoster(ctx context.Context, cfg Settings, now time.Time) error {
	records, err := s.roster.List(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Status == roster.StatusOnBreak && now.Sub(rec.UpdatedAt) > cfg.BreakMax() {
			s.emit(KindBreak, map[string]any{
				"user_id":   rec.UserID,
				"elapsed_s": int(now.Sub(rec.UpdatedAt).Seconds()),
			}, string(rec.UserID), cfg, now)
		}

		if rec.Status == roster.StatusOffline {
			continue
		}
		alive, err := s.roster.Alive(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if alive {
			continue
		}
		changed, err := s.roster.MarkOffline(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if changed {
			s.emit(KindOffline, map[string]any{"user_id": rec.UserID}, string(rec.UserID), cfg, now)
		}
	}
	return nil
}

func (s *Scanner) emitRequestAlert(kind string, r *request.TransportRequest, elapsed, threshold time.Duration, cfg Settings, now time.Time) {
	if threshold <= 0 || elapsed <= threshold {
		return
	}
	s.emit(kind, map[string]any{
		"request_id": r.ID,
		"status":     r.Status,
		"priority":   r.Priority,
		"elapsed_s":  int(elapsed.Seconds()),
	}, string(r.ID), cfg, now)
}

// emit publishes one alert_triggered event unless the same (entity, kind)
// already fired within the cooldown window.
func (s *Scanner) emit(kind string, payload map[string]any, entity string, cfg Settings, now time.Time) {
	key := kind + "|" + entity

	s.mu.Lock()
	if last, ok := s.lastAlert[key]; ok && now.Sub(last) < cfg.Cooldown() {
		s.mu.Unlock()
		return
	}
	s.lastAlert[key] = now
	s.mu.Unlock()

	payload["kind"] = kind
	s.pub.Publish("alert_triggered", payload, "")
	s.log.Info("alert triggered", zap.String("kind", kind), zap.String("entity", entity))
}
