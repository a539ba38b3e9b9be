// README: Matcher sweep tests; queue ordering, transporter consumption, race tolerance.
package assign

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"porter/internal/modules/request"
	"porter/internal/modules/roster"
	"porter/internal/types"
)

type fakeQueue struct {
	pending []*request.TransportRequest
	err     error
}

func (f *fakeQueue) List(_ context.Context, fl request.ListFilter) ([]*request.TransportRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !fl.PendingQueue {
		return nil, errors.New("matcher must request the pending queue")
	}
	out := make([]*request.TransportRequest, len(f.pending))
	copy(out, f.pending)
	// stat first, then oldest; mirrors the store's ORDER BY contract
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Priority == request.PriorityStat, out[j].Priority == request.PriorityStat
		if si != sj {
			return si
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type fakeAssigner struct {
	assigned map[types.ID]types.ID // request -> transporter
	fail     map[types.ID]error    // per-request forced error
}

func newFakeAssigner() *fakeAssigner {
	return &fakeAssigner{assigned: make(map[types.ID]types.ID), fail: make(map[types.ID]error)}
}

func (f *fakeAssigner) Assign(_ context.Context, cmd request.AssignCommand) error {
	if err, ok := f.fail[cmd.RequestID]; ok {
		return err
	}
	if cmd.Actor != request.SystemActor {
		return errors.New("matcher must assign as the system actor")
	}
	f.assigned[cmd.RequestID] = cmd.AssigneeID
	return nil
}

type fakePool struct {
	available []roster.Record
	err       error
}

func (f *fakePool) ListAvailable(_ context.Context) ([]roster.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.available, nil
}

func pendingReq(id string, priority request.Priority, createdAt time.Time) *request.TransportRequest {
	return &request.TransportRequest{
		ID:          types.ID(id),
		OriginFloor: request.FloorFCC1,
		Room:        150,
		Destination: "Radiology",
		Priority:    priority,
		Status:      request.StatusPending,
		CreatedAt:   createdAt,
	}
}

func availableTransporter(id string) roster.Record {
	return roster.Record{UserID: types.ID(id), Status: roster.StatusAvailable}
}

// TestSweepStatBeatsOlderRoutine: with one transporter and a queue holding an
// older routine request and a newer stat request, the stat request wins.
func TestSweepStatBeatsOlderRoutine(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*request.TransportRequest{
		pendingReq("r1", request.PriorityRoutine, base),                  // 10:00
		pendingReq("r2", request.PriorityStat, base.Add(5*time.Minute)),  // 10:05
		pendingReq("r3", request.PriorityRoutine, base.Add(time.Minute)), // 10:01
	}}
	assigner := newFakeAssigner()
	pool := &fakePool{available: []roster.Record{availableTransporter("t1")}}

	m := NewMatcher(queue, assigner, pool, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(assigner.assigned) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assigner.assigned))
	}
	if got := assigner.assigned["r2"]; got != "t1" {
		t.Fatalf("expected stat request r2 assigned to t1, got %v", assigner.assigned)
	}
}

// TestSweepOldestFirstWithinPriority: equal priorities pair in creation order.
func TestSweepOldestFirstWithinPriority(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*request.TransportRequest{
		pendingReq("newer", request.PriorityRoutine, base.Add(time.Minute)),
		pendingReq("older", request.PriorityRoutine, base),
	}}
	assigner := newFakeAssigner()
	pool := &fakePool{available: []roster.Record{availableTransporter("t1")}}

	m := NewMatcher(queue, assigner, pool, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, ok := assigner.assigned["older"]; !ok {
		t.Fatalf("expected older request assigned first, got %v", assigner.assigned)
	}
}

// TestSweepConsumesEachTransporterOnce: three requests, two transporters, two
// pairings; each transporter is used at most once per sweep.
func TestSweepConsumesEachTransporterOnce(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*request.TransportRequest{
		pendingReq("r1", request.PriorityRoutine, base),
		pendingReq("r2", request.PriorityRoutine, base.Add(time.Minute)),
		pendingReq("r3", request.PriorityRoutine, base.Add(2*time.Minute)),
	}}
	assigner := newFakeAssigner()
	pool := &fakePool{available: []roster.Record{
		availableTransporter("t1"),
		availableTransporter("t2"),
	}}

	m := NewMatcher(queue, assigner, pool, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(assigner.assigned) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assigner.assigned))
	}
	seen := make(map[types.ID]int)
	for _, transporter := range assigner.assigned {
		seen[transporter]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("transporter %s used %d times in one sweep", id, n)
		}
	}
	if _, ok := assigner.assigned["r3"]; ok {
		t.Fatalf("r3 should wait for the next sweep")
	}
}

func TestSweepEmptyQueueAndPool(t *testing.T) {
	assigner := newFakeAssigner()
	m := NewMatcher(&fakeQueue{}, assigner, &fakePool{}, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("empty queue sweep: %v", err)
	}

	queue := &fakeQueue{pending: []*request.TransportRequest{
		pendingReq("r1", request.PriorityRoutine, time.Now()),
	}}
	m = NewMatcher(queue, assigner, &fakePool{}, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("empty pool sweep: %v", err)
	}
	if len(assigner.assigned) != 0 {
		t.Fatalf("expected no assignments, got %v", assigner.assigned)
	}
}

// TestSweepToleratesLostRace: a conflict on one request skips it but keeps the
// transporter for the next request in the queue.
func TestSweepToleratesLostRace(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*request.TransportRequest{
		pendingReq("taken", request.PriorityStat, base),
		pendingReq("open", request.PriorityRoutine, base.Add(time.Minute)),
	}}
	assigner := newFakeAssigner()
	assigner.fail["taken"] = request.ErrConflict
	pool := &fakePool{available: []roster.Record{availableTransporter("t1")}}

	m := NewMatcher(queue, assigner, pool, nil, time.Second)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if got := assigner.assigned["open"]; got != "t1" {
		t.Fatalf("expected transporter reused for the next request, got %v", assigner.assigned)
	}
}

func TestSweepAbortsOnStoreError(t *testing.T) {
	boom := errors.New("db down")
	m := NewMatcher(&fakeQueue{err: boom}, newFakeAssigner(), &fakePool{}, nil, time.Second)
	if err := m.Sweep(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected store error surfaced, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewMatcher(&fakeQueue{}, newFakeAssigner(), &fakePool{}, nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
