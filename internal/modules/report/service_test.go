// README: CSV export tests over a stub store.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	rows []CompletedRow
	err  error
}

func (s *stubStore) Summary(_ context.Context, from, to time.Time) (*Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Summary{From: from, To: to, Completed: len(s.rows)}, nil
}

func (s *stubStore) CompletedBetween(_ context.Context, _, _ time.Time) ([]CompletedRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func TestExportCSV(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	completed := created.Add(25 * time.Minute)
	store := &stubStore{rows: []CompletedRow{
		{
			RequestID: "r1", OriginFloor: "FCC1", Room: 150, Destination: "Radiology",
			Priority: "stat", AssignedTo: "tr1",
			CreatedAt: created, CompletedAt: completed, CycleSeconds: 1500,
		},
	}}
	svc := NewService(store)

	var buf bytes.Buffer
	from := created.Add(-time.Hour)
	to := completed.Add(time.Hour)
	if err := svc.ExportCSV(context.Background(), &buf, from, to); err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 row, got %d records", len(records))
	}
	if records[0][0] != "request_id" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "r1" || row[1] != "FCC1" || row[2] != "150" || row[8] != "1500" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[6] != "2025-06-01T09:00:00Z" {
		t.Fatalf("created_at format: %q", row[6])
	}
}

func TestExportCSVEmptyRange(t *testing.T) {
	svc := NewService(&stubStore{})

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &buf, time.Now().Add(-time.Hour), time.Now()); err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}

func TestExportCSVStoreError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&stubStore{err: boom})

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &buf, time.Now(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected store error surfaced, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no bytes should be written on error, got %q", buf.String())
	}
}
