package postgres

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/keel"
)

// DefaultTable is the snapshot table name used unless overridden.
const DefaultTable = "keel_snapshots"

const dialectPostgres = "postgres"

// Snapshot is one persisted store state.
type Snapshot struct {
	Name      string
	Version   uint64
	Data      []byte
	UpdatedAt time.Time
}

// SnapshotStore reads and writes named snapshots in a Postgres table.
type SnapshotStore struct {
	db      DBAdapter
	table   string
	clock   clockz.Clock
	onError func(error)
}

// NewSnapshotStore creates a SnapshotStore on the given adapter.
//
// Configuration is chainable and must complete before Attach:
//
//	snapshots := postgres.NewSnapshotStore(adapter).
//	    Table("app_snapshots").
//	    OnError(logFailure)
func NewSnapshotStore(db DBAdapter) *SnapshotStore {
	return &SnapshotStore{
		db:    db,
		table: DefaultTable,
		clock: clockz.RealClock,
	}
}

// Table sets the snapshot table name. Default: DefaultTable.
func (s *SnapshotStore) Table(name string) *SnapshotStore {
	s.table = name
	return s
}

// Clock sets a custom clock for the updated_at column. Use this with
// clockz.FakeClock for deterministic tests.
func (s *SnapshotStore) Clock(clock clockz.Clock) *SnapshotStore {
	s.clock = clock
	return s
}

// OnError sets a callback for persistence failures raised from the
// install hook. Without it, failures are dropped; the store itself is
// never affected.
func (s *SnapshotStore) OnError(fn func(error)) *SnapshotStore {
	s.onError = fn
	return s
}

// Save upserts snap, keyed by its name.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	record := goqu.Record{
		"version":    int64(snap.Version), //nolint:gosec // versions stay far below int64 range
		"data":       string(snap.Data),
		"updated_at": snap.UpdatedAt,
	}
	insert := goqu.Record{"name": snap.Name}
	for col, v := range record {
		insert[col] = v
	}

	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.table).
		Rows(insert).
		OnConflict(goqu.DoUpdate("name", record)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build upsert for %s: %w", snap.Name, err)
	}

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// Load reads the snapshot stored under name. The second return is false
// when no row exists.
func (s *SnapshotStore) Load(ctx context.Context, name string) (Snapshot, bool, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.table).
		Select("name", "version", "data", "updated_at").
		Where(goqu.C("name").Eq(name)).
		Limit(1).
		ToSQL()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to build select for %s: %w", name, err)
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to load snapshot %s: %w", name, err)
	}
	defer rows.Close() //nolint:errcheck

	if !rows.Next() {
		return Snapshot{}, false, nil
	}

	var (
		rowName   string
		version   int64
		data      string
		updatedAt time.Time
	)
	if err := rows.Scan(&rowName, &version, &data, &updatedAt); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to scan snapshot %s: %w", name, err)
	}

	return Snapshot{
		Name:      rowName,
		Version:   uint64(version), //nolint:gosec // versions are never negative
		Data:      []byte(data),
		UpdatedAt: updatedAt,
	}, true, nil
}

// Delete removes the snapshot stored under name. Deleting an absent
// snapshot is a no-op.
func (s *SnapshotStore) Delete(ctx context.Context, name string) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.table).
		Where(goqu.C("name").Eq(name)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build delete for %s: %w", name, err)
	}

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}

// Attach subscribes to the store's install hook and persists every new
// snapshot under name using codec. Install hooks run in install order,
// so a per-attachment counter gives each snapshot its own version even
// when a newer install has already bumped the store's counter. Writes
// happen synchronously inside the hook; wrap the adapter in your own
// queue if install latency matters. Must be called during store setup,
// before the store is shared.
func (s *SnapshotStore) Attach(ctx context.Context, store *keel.Store, name string, codec keel.Codec) {
	var version atomic.Uint64
	store.OnInstall(func(next any) {
		data, err := codec.Marshal(next)
		if err != nil {
			s.report(fmt.Errorf("failed to encode snapshot %s: %w", name, err))
			return
		}
		snap := Snapshot{
			Name:      name,
			Version:   version.Add(1),
			Data:      data,
			UpdatedAt: s.clock.Now(),
		}
		if err := s.Save(ctx, snap); err != nil {
			s.report(err)
		}
	})
}

// Restore loads and decodes the snapshot stored under name, for seeding
// keel.New. The second return is false when no snapshot exists.
func (s *SnapshotStore) Restore(ctx context.Context, name string, codec keel.Codec) (any, bool, error) {
	snap, ok, err := s.Load(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	var state any
	if err := codec.Unmarshal(snap.Data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return state, true, nil
}

func (s *SnapshotStore) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
