/*
Package keel provides a path-addressed state container with structural
sharing, a uniform action protocol, and identity-diffed subscriptions.

A Store holds one current state snapshot: an immutable tree of
map[string]any mappings, []any sequences, and arbitrary leaf values. All
mutation goes through Dispatch, which resolves an action type against a
reducer registry, applies the derivation to the current snapshot, and
atomically installs the result. Prior snapshots are never modified;
updates copy only the containers along the addressed path and share every
other subtree by reference with the previous version.

# Store

Create a store from an initial snapshot and dispatch actions at it:

	store := keel.New(map[string]any{
	    "user": map[string]any{"name": "", "tags": []any{}},
	})

	store.Set(ctx, "user.name", "ada")
	store.Push(ctx, "user.tags", "admin")

Built-in path operations (set, delete, transform, push, filter, map) are
pre-registered under reserved keel.-prefixed action types; the Set,
Delete, Transform, Push, Filter and Map methods are thin wrappers over
Dispatch. Dispatching an action type with no registered reducer is a
no-op.

# Paths

Paths are dot-delimited and parsed once into typed segments:

	keel.ParsePath("users.0.name")

A segment of decimal digits is a sequence index; against a mapping parent
it addresses an ordinary string key. Reading a missing path yields
(nil, false) rather than an error. Writing through a missing intermediate
creates it: a sequence when the segment addressing it is an index, a
mapping otherwise.

# Reducers

A reducer derives a new state from the old one and a payload:

	store.AddReducer("shout", func(_ context.Context, state, _ any) keel.Result {
	    next, err := keel.Update(state, keel.ParsePath("message"), func(old any) any {
	        s, _ := old.(string)
	        return strings.ToUpper(s)
	    })
	    if err != nil {
	        return keel.Fail(err)
	    }
	    return keel.Done(next)
	})

	store.Dispatch(ctx, "shout", nil)

Registering a type that already exists replaces the prior reducer.

# Deferred Derivations

A reducer may return keel.Defer when its result is not immediately
available. The store runs the task on its own goroutine and installs
whatever it returns once it settles:

	store.AddReducer("load", func(_ context.Context, _, payload any) keel.Result {
	    return keel.Defer(func(ctx context.Context, s *keel.Store) (any, error) {
	        data, err := fetch(ctx, payload)
	        if err != nil {
	            return nil, err
	        }
	        // Re-read the latest snapshot at settlement time.
	        return keel.Update(s.State(), keel.ParsePath("data"), func(any) any { return data })
	    })
	})

Deferred results install in completion order, not dispatch order, and a
failed settlement leaves the state unchanged. There is no cancellation.
Store.Wait blocks until all pending tasks have settled.

# Subscriptions

Subscribers declare the paths they depend on and are notified once per
install whose watched values changed by reference identity:

	sub := store.Subscribe([]string{"user.name"}, func(next any) {
	    render(next)
	})
	defer store.Unsubscribe(sub)

Because unchanged subtrees are shared between snapshots, identity
comparison is an exact change detector, and subscribers watching
untouched paths are never invoked.

# Persistence and Tooling

The store exposes hooks rather than policies: OnInstall receives every
new snapshot (persistence adapters serialize from here), OnAction
receives (previous, new, type, payload) for history tooling, and OnError
receives failed derivations. Adapters live in pkg/:

  - pkg/file: debounced snapshot files with fsnotify rehydration
  - pkg/postgres: snapshot rows via pgx or sqlx
  - pkg/history: an action log recorder with replay
  - pkg/rule: expr-compiled reducers for serializable actions

# Observability

Store operations emit capitan signals (StoreDispatched, StoreInstalled,
StoreNotified, ...) carrying typed fields:

	capitan.Hook(keel.StoreInstalled, func(_ context.Context, e *capitan.Event) {
	    action, _ := keel.KeyAction.From(e)
	    log.Printf("installed after %s", action)
	})
*/
package keel
