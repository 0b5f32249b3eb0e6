package keel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Store holds the current state snapshot and applies dispatched actions.
//
// State is an immutable tree of map[string]any mappings, []any sequences
// and arbitrary leaves. An install replaces the whole snapshot; prior
// snapshots remain valid and unmodified, sharing untouched subtrees with
// their successors by reference. Because snapshots are never mutated
// after installation, concurrent readers always observe a fully-formed
// state.
type Store struct {
	registry *Registry
	hub      *hub
	metrics  MetricsProvider
	clock    clockz.Clock

	installHooks []func(next any)
	actionHooks  []func(prev, next any, actionType string, payload any)
	errorHooks   []func(actionType string, payload any, err error)

	mu         sync.Mutex
	current    any
	version    uint64
	deliveries []delivery
	delivering bool

	lastError atomic.Pointer[error]
	errors    *errorRing
	pending   sync.WaitGroup
}

// New creates a Store with initial as the current snapshot. Pass the
// snapshot restored by a persistence adapter, or nil to start empty.
//
// Instance configuration is chainable and must complete before the store
// is shared:
//
//	store := keel.New(initial).
//	    ErrorHistorySize(16).
//	    OnInstall(adapter.Save)
func New(initial any) *Store {
	return &Store{
		registry: NewRegistry(),
		hub:      newHub(),
		clock:    clockz.RealClock,
		current:  initial,
	}
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Registry replaces the store's reducer registry. Use this to share one
// registry between stores. Must be called before the store is shared.
func (s *Store) Registry(r *Registry) *Store {
	s.registry = r
	return s
}

// Clock sets a custom clock for time operations. Use this with
// clockz.FakeClock for deterministic tests. Must be called before the
// store is shared.
func (s *Store) Clock(clock clockz.Clock) *Store {
	s.clock = clock
	return s
}

// Metrics sets a metrics provider for observability integration. Must be
// called before the store is shared.
func (s *Store) Metrics(provider MetricsProvider) *Store {
	s.metrics = provider
	return s
}

// ErrorHistorySize sets the number of recent dispatch failures to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before the store is shared.
func (s *Store) ErrorHistorySize(n int) *Store {
	s.errors = newErrorRing(n)
	return s
}

// OnInstall adds a hook invoked with the new snapshot after every
// successful install, in install order. Persistence adapters serialize
// from here. Must be called before the store is shared.
func (s *Store) OnInstall(hook func(next any)) *Store {
	s.installHooks = append(s.installHooks, hook)
	return s
}

// OnAction adds a hook invoked with (previous, new, actionType, payload)
// after every install, in install order, sufficient for external tooling
// to reconstruct a log and replay it. The store itself holds no history
// buffer. Must be called before the store is shared.
func (s *Store) OnAction(hook func(prev, next any, actionType string, payload any)) *Store {
	s.actionHooks = append(s.actionHooks, hook)
	return s
}

// OnError adds a hook invoked when a derivation fails, synchronously or
// at settlement. State is left unchanged; the caller may redispatch.
// Must be called before the store is shared.
func (s *Store) OnError(hook func(actionType string, payload any, err error)) *Store {
	s.errorHooks = append(s.errorHooks, hook)
	return s
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// State returns the current snapshot. Callers must treat it as read-only;
// all mutation goes through Dispatch.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Version returns the number of installs applied so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// LastError returns the most recent dispatch failure, or nil.
func (s *Store) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent dispatch failures, oldest first. Returns
// nil unless enabled via ErrorHistorySize.
func (s *Store) ErrorHistory() []DispatchError {
	return s.errors.all()
}

// AddReducer registers fn under actionType, replacing any prior
// registration for that type.
func (s *Store) AddReducer(actionType string, fn Reducer) {
	s.registry.Register(actionType, fn)
}

// Subscribe registers callback to be invoked once after every install
// that changes the identity of the value at any of the watched paths.
// The callback receives the newly installed state. Watch "" to observe
// every install. Subscriptions are never collected automatically; callers
// must Unsubscribe.
func (s *Store) Subscribe(paths []string, callback func(next any)) Subscription {
	return s.hub.subscribe(paths, callback)
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(sub Subscription) {
	s.hub.unsubscribe(sub)
}

// Wait blocks until every deferred derivation dispatched so far has
// settled. Intended for shutdown and deterministic tests.
func (s *Store) Wait() {
	s.pending.Wait()
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

// Dispatch resolves actionType and applies its reducer to the current
// state. A Done result installs before Dispatch returns; a Defer result
// installs whenever its task settles, in completion order, reading
// whatever State returns at that time. Dispatching an unregistered type
// is a no-op that leaves state unchanged. A failed derivation installs
// nothing and surfaces its error.
func (s *Store) Dispatch(ctx context.Context, actionType string, payload any) error {
	start := s.clock.Now()
	capitan.Emit(ctx, StoreDispatched,
		KeyAction.Field(actionType),
	)
	if s.metrics != nil {
		s.metrics.OnDispatch(actionType)
	}

	fn, ok := s.registry.Resolve(actionType)
	if !ok {
		capitan.Emit(ctx, StoreReducerMissing,
			KeyAction.Field(actionType),
		)
		return nil
	}

	result := fn(ctx, s.State(), payload)
	switch {
	case result.err != nil:
		s.fail(ctx, actionType, payload, result.err, start, false)
		return result.err
	case result.task != nil:
		capitan.Emit(ctx, StoreDeferred,
			KeyAction.Field(actionType),
		)
		s.pending.Add(1)
		go s.settle(ctx, actionType, payload, result.task, start)
		return nil
	default:
		s.install(ctx, actionType, payload, result.state, start)
		return nil
	}
}

// settle runs a deferred task and installs or reports its outcome.
func (s *Store) settle(ctx context.Context, actionType string, payload any, task Task, start time.Time) {
	defer s.pending.Done()
	next, err := task(ctx, s)
	if err != nil {
		s.fail(ctx, actionType, payload, err, start, true)
		return
	}
	s.install(ctx, actionType, payload, next, start)
}

// delivery is one installed snapshot queued for hook and subscriber
// fan-out.
type delivery struct {
	ctx        context.Context
	actionType string
	payload    any
	prev       any
	next       any
	version    uint64
	start      time.Time
}

// install atomically swaps the current snapshot and queues hook and
// subscriber fan-out. Deliveries drain one at a time in install order,
// so racing deferred settlements cannot hand a stale snapshot to a hook
// after a newer one. The drain runs outside the lock; a callback may
// dispatch follow-up actions, whose own delivery runs after the current
// one completes.
func (s *Store) install(ctx context.Context, actionType string, payload any, next any, start time.Time) {
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.version++
	s.deliveries = append(s.deliveries, delivery{
		ctx:        ctx,
		actionType: actionType,
		payload:    payload,
		prev:       prev,
		next:       next,
		version:    s.version,
		start:      start,
	})
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.deliveries) == 0 {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		d := s.deliveries[0]
		s.deliveries = s.deliveries[1:]
		s.mu.Unlock()
		s.deliver(d)
	}
}

// deliver runs hooks and subscriber notification for one install.
func (s *Store) deliver(d delivery) {
	capitan.Emit(d.ctx, StoreInstalled,
		KeyAction.Field(d.actionType),
		KeyVersion.Field(int(d.version)), //nolint:gosec // observability only
	)
	if s.metrics != nil {
		s.metrics.OnInstall(d.actionType, s.clock.Since(d.start))
	}

	for _, hook := range s.installHooks {
		hook(d.next)
	}
	for _, hook := range s.actionHooks {
		hook(d.prev, d.next, d.actionType, d.payload)
	}

	notified := s.hub.notify(d.prev, d.next)
	capitan.Emit(d.ctx, StoreNotified,
		KeyAction.Field(d.actionType),
		KeyNotified.Field(notified),
	)
	if s.metrics != nil {
		s.metrics.OnNotify(notified)
	}
}

// fail records a dispatch failure without touching the snapshot.
func (s *Store) fail(ctx context.Context, actionType string, payload any, err error, start time.Time, deferred bool) {
	e := err
	s.lastError.Store(&e)
	s.errors.push(DispatchError{Action: actionType, Err: err, At: s.clock.Now()})

	signal := StoreReducerFailed
	if deferred {
		signal = StoreDeferFailed
	}
	capitan.Emit(ctx, signal,
		KeyAction.Field(actionType),
		KeyError.Field(err.Error()),
	)
	if s.metrics != nil {
		s.metrics.OnDispatchFailure(actionType, s.clock.Since(start))
	}
	for _, hook := range s.errorHooks {
		hook(actionType, payload, err)
	}
}

// -----------------------------------------------------------------------------
// Convenience Dispatchers
// -----------------------------------------------------------------------------

// Set replaces the value at path with value.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	return s.Dispatch(ctx, ActionSet, SetPayload{Path: path, Value: value})
}

// Delete removes the entry at path. Deleting an absent path is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.Dispatch(ctx, ActionDelete, DeletePayload{Path: path})
}

// Transform replaces the value at path with fn applied to it.
func (s *Store) Transform(ctx context.Context, path string, fn func(any) any) error {
	return s.Dispatch(ctx, ActionTransform, TransformPayload{Path: path, Fn: fn})
}

// Push appends values to the sequence at path, initializing an empty
// sequence when the path is absent.
func (s *Store) Push(ctx context.Context, path string, values ...any) error {
	return s.Dispatch(ctx, ActionPush, PushPayload{Path: path, Values: values})
}

// Filter keeps only the elements at path for which keep returns true.
func (s *Store) Filter(ctx context.Context, path string, keep func(any) bool) error {
	return s.Dispatch(ctx, ActionFilter, FilterPayload{Path: path, Keep: keep})
}

// Map replaces every element at path with fn applied to it.
func (s *Store) Map(ctx context.Context, path string, fn func(any) any) error {
	return s.Dispatch(ctx, ActionMap, MapPayload{Path: path, Fn: fn})
}
