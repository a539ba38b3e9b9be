// README: DB-backed concurrency and queue-ordering tests (run with -race).
package request

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"porter/internal/types"
)

func TestPostgresConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	svc := NewService(store, &memPublisher{}, nil, false)

	r := mustCreate(t, svc, PriorityRoutine)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		actor := Actor{ID: types.ID(fmt.Sprintf("tr%d", i)), Role: types.RoleTransporter}
		wg.Add(1)
		go func(a Actor) {
			defer wg.Done()
			errs <- svc.Claim(ctx, ClaimCommand{RequestID: r.ID, Actor: a})
		}(actor)
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", success)
	}

	final, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if final.Status != StatusAssigned {
		t.Fatalf("unexpected final status: %s", final.Status)
	}
	if final.AssignedTo == nil || *final.AssignedTo == "" {
		t.Fatal("expected assigned_to to be set")
	}

	history, err := svc.History(ctx, r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	edges := 0
	for _, h := range history {
		if h.FromStatus == StatusPending && h.ToStatus == StatusAssigned {
			edges++
		}
	}
	if edges != 1 {
		t.Fatalf("expected exactly 1 pending→assigned history row, got %d", edges)
	}
}

func TestPostgresConcurrentAssignVsCancel(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	svc := NewService(store, &memPublisher{}, nil, false)

	r := mustCreate(t, svc, PriorityStat)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- svc.Assign(ctx, AssignCommand{RequestID: r.ID, Actor: dispatcher, AssigneeID: "tr1"})
	}()
	go func() {
		defer wg.Done()
		errs <- svc.Cancel(ctx, CancelCommand{RequestID: r.ID, Actor: dispatcher})
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && err != ErrConflict && err != ErrInvalidTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	final, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if final.Status != StatusAssigned && final.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", final.Status)
	}
}

// TestPostgresPendingQueueOrdering checks the matcher's queue contract in SQL:
// stat requests first, then oldest-first within each priority.
func TestPostgresPendingQueueOrdering(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	svc := NewService(store, &memPublisher{}, nil, false)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	createAt := func(at time.Time, priority Priority) types.ID {
		svc.now = func() time.Time { return at }
		r, err := svc.Create(ctx, CreateCommand{
			OriginFloor: FloorFCC1,
			Room:        150,
			Destination: "Radiology",
			Priority:    priority,
			CreatedBy:   "nurse1",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return r.ID
	}

	r1 := createAt(base, PriorityRoutine)                // 10:00
	r2 := createAt(base.Add(5*time.Minute), PriorityStat) // 10:05
	r3 := createAt(base.Add(time.Minute), PriorityRoutine) // 10:01

	queue, err := svc.List(ctx, ListFilter{PendingQueue: true})
	if err != nil {
		t.Fatalf("list pending queue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 queued requests, got %d", len(queue))
	}
	want := []types.ID{r2, r1, r3}
	for i, id := range want {
		if queue[i].ID != id {
			t.Fatalf("queue[%d] = %s, want %s (full order %v)", i, queue[i].ID, id, queue)
		}
	}
}

func TestPostgresTransitionRosterEffect(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	svc := NewService(store, &memPublisher{}, nil, false)

	r := mustCreate(t, svc, PriorityRoutine)
	if err := svc.Assign(ctx, AssignCommand{RequestID: r.ID, Actor: dispatcher, AssigneeID: "tr1"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := rosterStatus(t, store.db, "tr1"); got != "assigned" {
		t.Fatalf("roster status = %q, want assigned", got)
	}

	actor := Actor{ID: "tr1", Role: types.RoleTransporter}
	for _, target := range []Status{StatusAccepted, StatusEnRoute, StatusWithPatient, StatusComplete} {
		if err := svc.Advance(ctx, AdvanceCommand{RequestID: r.ID, Actor: actor, Target: target}); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}
	if got := rosterStatus(t, store.db, "tr1"); got != "available" {
		t.Fatalf("roster status after completion = %q, want available", got)
	}
}

func rosterStatus(t *testing.T, db *pgxpool.Pool, userID string) string {
	t.Helper()
	var status string
	err := db.QueryRow(context.Background(),
		`SELECT status FROM transporter_status WHERE user_id = $1`, userID).Scan(&status)
	if err != nil {
		t.Fatalf("read roster status: %v", err)
	}
	return status
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("PORTER_TEST_DSN")
	if dsn == "" {
		t.Skip("PORTER_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE request_status_history, transport_requests, transporter_status"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	// roster rows reference users; seed the transporters the tests assign to
	for i := 0; i < 8; i++ {
		uid := fmt.Sprintf("tr%d", i)
		_, err := db.Exec(ctx, `
			INSERT INTO users (id, username, role, password_hash)
			VALUES ($1, $1, 1, 'x') ON CONFLICT (id) DO NOTHING`, uid)
		if err != nil {
			t.Fatalf("seed user %s: %v", uid, err)
		}
	}

	return NewPostgresStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
