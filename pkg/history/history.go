// Package history records the actions a keel store installs and can
// replay them into another store. The recorder is built entirely on the
// store's public action hook, so it composes with any reducer set
// without touching the dispatch path.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/keel"
)

// Entry is one recorded dispatch that produced an install.
type Entry struct {
	ID      string
	Action  string
	Payload any
	At      time.Time
}

// Recorder accumulates install entries from a store's action hook.
type Recorder struct {
	clock clockz.Clock
	limit int

	mu      sync.RWMutex
	entries []Entry
}

// NewRecorder creates an unbounded Recorder.
func NewRecorder() *Recorder {
	return &Recorder{clock: clockz.RealClock}
}

// Limit caps the number of retained entries; when the cap is exceeded
// the oldest entries are dropped. Zero means unbounded.
func (r *Recorder) Limit(n int) *Recorder {
	r.limit = n
	return r
}

// Clock sets a custom clock for entry timestamps. Use this with
// clockz.FakeClock for deterministic tests.
func (r *Recorder) Clock(clock clockz.Clock) *Recorder {
	r.clock = clock
	return r
}

// Attach registers the recorder on the store's action hook. Must be
// called during store setup, before the store is shared.
func (r *Recorder) Attach(store *keel.Store) {
	store.OnAction(func(_, _ any, actionType string, payload any) {
		r.record(actionType, payload)
	})
}

func (r *Recorder) record(actionType string, payload any) {
	entry := Entry{
		ID:      uuid.NewString(),
		Action:  actionType,
		Payload: payload,
		At:      r.clock.Now(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	r.mu.Unlock()
}

// Entries returns a copy of the recorded log, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of retained entries.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear drops all recorded entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Replay dispatches the recorded actions into store, oldest first, and
// stops at the first failure. Replaying into the store being recorded
// would feed the log back into itself; use a fresh store seeded with
// the same initial snapshot.
func (r *Recorder) Replay(ctx context.Context, store *keel.Store) error {
	for _, entry := range r.Entries() {
		if err := store.Dispatch(ctx, entry.Action, entry.Payload); err != nil {
			return fmt.Errorf("failed to replay %s (%s): %w", entry.Action, entry.ID, err)
		}
	}
	return nil
}
