// README: Report service; summaries plus CSV export of completed transports.
package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

type Store interface {
	Summary(ctx context.Context, from, to time.Time) (*Summary, error)
	CompletedBetween(ctx context.Context, from, to time.Time) ([]CompletedRow, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	return s.store.Summary(ctx, from, to)
}

// ExportCSV streams completed transports in the range as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := s.store.CompletedBetween(ctx, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"request_id", "origin_floor", "room", "destination", "priority",
		"assigned_to", "created_at", "completed_at", "cycle_seconds"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RequestID, r.OriginFloor, strconv.Itoa(r.Room), r.Destination, r.Priority,
			r.AssignedTo,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.CompletedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.CycleSeconds),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
