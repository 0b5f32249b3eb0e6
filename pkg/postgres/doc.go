// Package postgres persists keel store snapshots in a Postgres table,
// one row per named store. It works with either a pgx pool or a
// database/sql based connection through a small adapter interface, and
// builds its SQL with goqu.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS keel_snapshots (
//	    name       TEXT PRIMARY KEY,
//	    version    BIGINT NOT NULL,
//	    data       TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//
// Typical wiring:
//
//	pool, err := pgxpool.New(ctx, dsn)
//	snapshots := postgres.NewSnapshotStore(postgres.NewPGXAdapter(pool))
//
//	initial, ok, err := snapshots.Restore(ctx, "orders", keel.JSONCodec{})
//	if !ok {
//	    initial = defaultState()
//	}
//	store := keel.New(initial)
//	snapshots.Attach(ctx, store, "orders", keel.JSONCodec{})
package postgres
