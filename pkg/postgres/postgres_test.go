package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/keel"
)

// fakeDB records interpolated SQL and plays back canned rows.
type fakeDB struct {
	queries []string
	execs   []string
	rows    [][]any
	execErr error
}

func (f *fakeDB) Query(_ context.Context, query string) (DBRows, error) {
	f.queries = append(f.queries, query)
	return &fakeRows{rows: f.rows}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (DBResult, error) {
	f.execs = append(f.execs, query)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return fakeResult{}, nil
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func (f *fakeRows) Close() error { return nil }

type fakeResult struct{}

func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

func TestSnapshotStore_SaveBuildsUpsert(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	snapshots := NewSnapshotStore(db)

	err := snapshots.Save(ctx, Snapshot{
		Name:      "orders",
		Version:   3,
		Data:      []byte(`{"n":1}`),
		UpdatedAt: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if len(db.execs) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(db.execs))
	}
	query := db.execs[0]
	for _, want := range []string{`INSERT INTO "keel_snapshots"`, "ON CONFLICT", "DO UPDATE SET", "orders", `{"n":1}`} {
		if !strings.Contains(query, want) {
			t.Errorf("expected query to contain %q, got:\n%s", want, query)
		}
	}
}

func TestSnapshotStore_CustomTable(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	snapshots := NewSnapshotStore(db).Table("app_snapshots")

	if err := snapshots.Delete(ctx, "orders"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !strings.Contains(db.execs[0], `"app_snapshots"`) {
		t.Errorf("expected custom table in query, got:\n%s", db.execs[0])
	}
}

func TestSnapshotStore_LoadFound(t *testing.T) {
	ctx := context.Background()
	updatedAt := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{
		{"orders", int64(3), `{"n":1}`, updatedAt},
	}}
	snapshots := NewSnapshotStore(db)

	snap, ok, err := snapshots.Load(ctx, "orders")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to be found")
	}
	if snap.Name != "orders" || snap.Version != 3 || string(snap.Data) != `{"n":1}` {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if !snap.UpdatedAt.Equal(updatedAt) {
		t.Errorf("unexpected updated_at: %v", snap.UpdatedAt)
	}
	if !strings.Contains(db.queries[0], `"name" = 'orders'`) {
		t.Errorf("expected name filter in query, got:\n%s", db.queries[0])
	}
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	snapshots := NewSnapshotStore(&fakeDB{})

	_, ok, err := snapshots.Load(ctx, "orders")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected no snapshot")
	}
}

func TestSnapshotStore_DeleteBuildsDelete(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	snapshots := NewSnapshotStore(db)

	if err := snapshots.Delete(ctx, "orders"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	query := db.execs[0]
	if !strings.Contains(query, `DELETE FROM "keel_snapshots"`) || !strings.Contains(query, "orders") {
		t.Errorf("unexpected delete query:\n%s", query)
	}
}

func TestSnapshotStore_AttachPersistsInstalls(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	clock := clockz.NewFakeClock()
	snapshots := NewSnapshotStore(db).Clock(clock)

	store := keel.New(map[string]any{"n": 0})
	snapshots.Attach(ctx, store, "orders", keel.JSONCodec{})

	if err := store.Set(ctx, "n", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "n", 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if len(db.execs) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(db.execs))
	}
	if !strings.Contains(db.execs[1], `{"n":2}`) {
		t.Errorf("expected latest snapshot in upsert, got:\n%s", db.execs[1])
	}

	// Each upsert carries the version of its own snapshot: goqu orders
	// columns alphabetically, so version closes the VALUES group.
	if !strings.Contains(db.execs[0], `{"n":1}`) || !strings.Contains(db.execs[0], ", 1) ON CONFLICT") {
		t.Errorf("expected version 1 with first snapshot, got:\n%s", db.execs[0])
	}
	if !strings.Contains(db.execs[1], ", 2) ON CONFLICT") {
		t.Errorf("expected version 2 with second snapshot, got:\n%s", db.execs[1])
	}
}

func TestSnapshotStore_AttachReportsFailures(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{execErr: errors.New("connection lost")}

	var failures []error
	snapshots := NewSnapshotStore(db).OnError(func(err error) {
		failures = append(failures, err)
	})

	store := keel.New(map[string]any{"n": 0})
	snapshots.Attach(ctx, store, "orders", keel.JSONCodec{})

	if err := store.Set(ctx, "n", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 reported failure, got %d", len(failures))
	}
	if !strings.Contains(failures[0].Error(), "connection lost") {
		t.Errorf("unexpected failure: %v", failures[0])
	}
}

func TestSnapshotStore_RestoreDecodesState(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: [][]any{
		{"orders", int64(1), `{"user":{"name":"ada"}}`, time.Now()},
	}}
	snapshots := NewSnapshotStore(db)

	state, ok, err := snapshots.Restore(ctx, "orders", keel.JSONCodec{})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to be found")
	}
	if v, _ := keel.Get(state, keel.ParsePath("user.name")); v != "ada" {
		t.Errorf("expected 'ada', got %v", v)
	}
}

func TestSnapshotStore_RestoreMissing(t *testing.T) {
	ctx := context.Background()
	snapshots := NewSnapshotStore(&fakeDB{})

	state, ok, err := snapshots.Restore(ctx, "orders", keel.JSONCodec{})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if ok || state != nil {
		t.Errorf("expected absent snapshot, got %v", state)
	}
}
