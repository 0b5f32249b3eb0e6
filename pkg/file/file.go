// Package file provides a file-backed persistence adapter for keel
// stores. It consumes the store's install hook to serialize snapshots,
// coalescing rapid installs with a debounce window, restores a snapshot
// at startup, and can watch the snapshot file for external edits and
// re-dispatch them into the store.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/keel"
)

// DefaultDebounce is the default write-coalescing window.
const DefaultDebounce = 100 * time.Millisecond

// ActionRestore is the reserved action type dispatched by Watch when the
// snapshot file changes on disk. Its payload is the deserialized
// snapshot, which replaces the whole state.
const ActionRestore = "keel.file.restore"

// Adapter persists store snapshots to a single file and restores them.
type Adapter struct {
	path     string
	codec    keel.Codec
	clock    clockz.Clock
	debounce time.Duration
	perm     os.FileMode
	onError  func(error)
}

// New creates an Adapter for the given snapshot file path.
//
// Configuration is chainable and must complete before Attach or Watch:
//
//	adapter := file.New("/var/lib/app/state.json").
//	    Debounce(time.Second).
//	    Codec(keel.YAMLCodec{})
func New(path string) *Adapter {
	return &Adapter{
		path:     path,
		codec:    keel.JSONCodec{},
		clock:    clockz.RealClock,
		debounce: DefaultDebounce,
		perm:     0o600,
	}
}

// Codec sets the snapshot codec. Default: keel.JSONCodec.
func (a *Adapter) Codec(codec keel.Codec) *Adapter {
	a.codec = codec
	return a
}

// Clock sets a custom clock for the debounce timer. Use this with
// clockz.FakeClock for deterministic tests.
func (a *Adapter) Clock(clock clockz.Clock) *Adapter {
	a.clock = clock
	return a
}

// Debounce sets the write-coalescing window. Installs arriving within
// this duration collapse into a single write of the latest snapshot.
func (a *Adapter) Debounce(d time.Duration) *Adapter {
	a.debounce = d
	return a
}

// OnError sets a callback for write and watch failures. Without it,
// failures are dropped; the store itself is never affected.
func (a *Adapter) OnError(fn func(error)) *Adapter {
	a.onError = fn
	return a
}

// Load reads and deserializes the snapshot file. The second return is
// false when the file does not exist, so a fresh deployment can fall
// back to a default initial state:
//
//	initial, ok, err := adapter.Load()
//	if err != nil { ... }
//	if !ok {
//	    initial = defaultState()
//	}
//	store := keel.New(initial)
func (a *Adapter) Load() (any, bool, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot %s: %w", a.path, err)
	}
	var snapshot any
	if err := a.codec.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot %s: %w", a.path, err)
	}
	return snapshot, true, nil
}

// Attach subscribes to the store's install hook and persists each new
// snapshot, debounced. The writer goroutine runs until ctx is canceled;
// a pending snapshot is flushed on the way out. Must be called during
// store setup, before the store is shared.
func (a *Adapter) Attach(ctx context.Context, store *keel.Store) {
	changes := make(chan any, 1)
	store.OnInstall(func(next any) {
		// Coalesce: drop the stale pending snapshot, keep the newest.
		for {
			select {
			case changes <- next:
				return
			default:
				select {
				case <-changes:
				default:
				}
			}
		}
	})
	go a.run(ctx, changes)
}

// run debounces snapshot writes, mirroring a watch loop with a single
// timer owner.
func (a *Adapter) run(ctx context.Context, changes <-chan any) {
	var (
		timer      clockz.Timer
		pending    any
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if hasPending {
				a.write(pending)
			}
			return

		case next := <-changes:
			pending = next
			hasPending = true

			if timer == nil {
				timer = a.clock.NewTimer(a.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(a.debounce)
			}

		case <-timerC:
			if hasPending {
				a.write(pending)
				hasPending = false
			}
		}
	}
}

func (a *Adapter) write(snapshot any) {
	data, err := a.codec.Marshal(snapshot)
	if err != nil {
		a.report(fmt.Errorf("failed to encode snapshot: %w", err))
		return
	}
	if err := os.WriteFile(a.path, data, a.perm); err != nil {
		a.report(fmt.Errorf("failed to write snapshot %s: %w", a.path, err))
	}
}

func (a *Adapter) report(err error) {
	if a.onError != nil {
		a.onError(err)
	}
}

// Watch observes the snapshot file for external edits and re-dispatches
// each one into the store under ActionRestore, replacing the whole
// state. The file must exist when Watch is called.
//
// Do not combine Watch and Attach on the same store without an external
// guard: the adapter's own writes show up as file edits.
func (a *Adapter) Watch(ctx context.Context, store *keel.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(a.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file %s: %w", a.path, err)
	}

	store.AddReducer(ActionRestore, func(_ context.Context, _, payload any) keel.Result {
		return keel.Done(payload)
	})

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				snapshot, found, err := a.Load()
				if err != nil {
					a.report(err)
					continue
				}
				if !found {
					continue
				}
				if err := store.Dispatch(ctx, ActionRestore, snapshot); err != nil {
					a.report(err)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.report(err)
			}
		}
	}()

	return nil
}
