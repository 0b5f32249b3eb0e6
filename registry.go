package keel

import (
	"context"
	"sync"
)

// Reducer derives a new state from the current one and an action payload.
// Reducers must not mutate state; they return a fresh tree (typically via
// Update or Remove) or a deferred task.
type Reducer func(ctx context.Context, state any, payload any) Result

// Registry maps action types to reducers. The built-in path operations
// are pre-registered under reserved keel.-prefixed types.
type Registry struct {
	mu       sync.RWMutex
	reducers map[string]Reducer
}

// NewRegistry creates a Registry with the built-in reducers registered.
func NewRegistry() *Registry {
	r := &Registry{reducers: make(map[string]Reducer)}
	registerBuiltins(r)
	return r
}

// Register stores fn under actionType, replacing any prior registration
// for that type. Last write wins.
func (r *Registry) Register(actionType string, fn Reducer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reducers[actionType] = fn
}

// Resolve looks up the reducer for actionType.
func (r *Registry) Resolve(actionType string) (Reducer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.reducers[actionType]
	return fn, ok
}
