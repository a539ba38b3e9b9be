// README: Auto-assign matcher; pairs pending requests with available transporters each sweep.
package assign

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"porter/internal/modules/request"
	"porter/internal/modules/roster"
)

type RequestSource interface {
	List(ctx context.Context, f request.ListFilter) ([]*request.TransportRequest, error)
}

type Assigner interface {
	Assign(ctx context.Context, cmd request.AssignCommand) error
}

type RosterSource interface {
	ListAvailable(ctx context.Context) ([]roster.Record, error)
}

// Matcher greedily pairs the pending queue (stat first, then oldest) with the
// available pool, FIFO. Losing a race to a manual assignment is a no-op, not
// an error.
type Matcher struct {
	requests RequestSource
	assigner Assigner
	roster   RosterSource
	log      *zap.Logger
	interval time.Duration
}

func NewMatcher(requests RequestSource, assigner Assigner, rosterSrc RosterSource, log *zap.Logger, interval time.Duration) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{
		requests: requests,
		assigner: assigner,
		roster:   rosterSrc,
		log:      log,
		interval: interval,
	}
}

// Run sweeps until cancelled; the timer is reset only after a sweep finishes,
// so sweeps never overlap.
func (m *Matcher) Run(ctx context.Context) {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := m.Sweep(ctx); err != nil {
				m.log.Error("assign sweep failed", zap.Error(err))
			}
			timer.Reset(m.interval)
		}
	}
}

// Sweep performs one matching pass. Each transporter is consumed by at most
// one pairing per sweep; leftover requests wait for the next tick.
func (m *Matcher) Sweep(ctx context.Context) error {
	pending, err := m.requests.List(ctx, request.ListFilter{PendingQueue: true})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	available, err := m.roster.ListAvailable(ctx)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return nil
	}

	next := 0
	for _, r := range pending {
		if next >= len(available) {
			break
		}
		transporter := available[next]

		err := m.assigner.Assign(ctx, request.AssignCommand{
			RequestID:  r.ID,
			Actor:      request.SystemActor,
			AssigneeID: transporter.UserID,
		})
		switch {
		case err == nil:
			next++
			m.log.Info("auto-assigned request",
				zap.String("request_id", string(r.ID)),
				zap.String("transporter", string(transporter.UserID)),
			)
		case errors.Is(err, request.ErrConflict), errors.Is(err, request.ErrInvalidTransition):
			// A manual assignment won the race; skip the request, keep the transporter.
			m.log.Debug("request taken before auto-assign", zap.String("request_id", string(r.ID)))
		default:
			return err
		}
	}
	return nil
}
