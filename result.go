package keel

import "context"

// Task is a deferred derivation. It receives the store so it can re-read
// State at settlement time rather than relying on the snapshot captured
// at dispatch; the returned value is installed as the new current state.
type Task func(ctx context.Context, store *Store) (any, error)

// Result is the outcome of a Reducer: an immediately available new state,
// a failure, or a deferred task whose value installs once it settles.
type Result struct {
	state any
	err   error
	task  Task
}

// Done returns a Result carrying an immediately available new state.
func Done(state any) Result {
	return Result{state: state}
}

// Fail returns a Result carrying a failure. Nothing is installed and the
// error surfaces to the dispatch caller.
func Fail(err error) Result {
	return Result{err: err}
}

// Defer returns a Result whose state is produced asynchronously. The
// store runs the task on its own goroutine and installs the result in
// completion order, not dispatch order. There is no cancellation: a
// dispatched task always installs its result or reports its failure.
func Defer(task Task) Result {
	return Result{task: task}
}
