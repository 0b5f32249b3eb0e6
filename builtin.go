package keel

import (
	"context"
	"fmt"
)

// Built-in action types. The keel. prefix is reserved; user registrations
// should avoid it.
const (
	ActionSet       = "keel.set"
	ActionDelete    = "keel.delete"
	ActionTransform = "keel.transform"
	ActionPush      = "keel.push"
	ActionFilter    = "keel.filter"
	ActionMap       = "keel.map"
)

// SetPayload replaces the value at Path with Value.
type SetPayload struct {
	Path  string
	Value any
}

// DeletePayload removes the entry at Path.
type DeletePayload struct {
	Path string
}

// TransformPayload replaces the value at Path with Fn applied to the
// current value (nil when the path does not resolve).
type TransformPayload struct {
	Path string
	Fn   func(any) any
}

// PushPayload appends Values to the sequence at Path. An absent path is
// initialized to an empty sequence first.
type PushPayload struct {
	Path   string
	Values []any
}

// FilterPayload keeps only the elements of the sequence at Path for which
// Keep returns true, preserving order.
type FilterPayload struct {
	Path string
	Keep func(any) bool
}

// MapPayload replaces every element of the sequence at Path with Fn
// applied to it, preserving order and length.
type MapPayload struct {
	Path string
	Fn   func(any) any
}

func registerBuiltins(r *Registry) {
	r.Register(ActionSet, setReducer)
	r.Register(ActionDelete, deleteReducer)
	r.Register(ActionTransform, transformReducer)
	r.Register(ActionPush, pushReducer)
	r.Register(ActionFilter, filterReducer)
	r.Register(ActionMap, mapReducer)
}

func setReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(SetPayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects SetPayload, got %T", ActionSet, payload))
	}
	next, err := Update(state, ParsePath(p.Path), func(any) any { return p.Value })
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}

func deleteReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(DeletePayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects DeletePayload, got %T", ActionDelete, payload))
	}
	next, err := Remove(state, ParsePath(p.Path))
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}

func transformReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(TransformPayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects TransformPayload, got %T", ActionTransform, payload))
	}
	if p.Fn == nil {
		return Fail(fmt.Errorf("keel: %s requires a transform function", ActionTransform))
	}
	next, err := Update(state, ParsePath(p.Path), func(old any) any { return p.Fn(old) })
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}

func pushReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(PushPayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects PushPayload, got %T", ActionPush, payload))
	}
	path := ParsePath(p.Path)
	if current, ok := Get(state, path); ok && current != nil {
		if _, isSeq := current.([]any); !isSeq {
			return Fail(fmt.Errorf("keel: %s: value at %q is %T, not a sequence", ActionPush, p.Path, current))
		}
	}
	next, err := Update(state, path, func(old any) any {
		seq, _ := old.([]any)
		out := make([]any, 0, len(seq)+len(p.Values))
		out = append(out, seq...)
		out = append(out, p.Values...)
		return out
	})
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}

func filterReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(FilterPayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects FilterPayload, got %T", ActionFilter, payload))
	}
	if p.Keep == nil {
		return Fail(fmt.Errorf("keel: %s requires a predicate", ActionFilter))
	}
	path := ParsePath(p.Path)
	current, ok := Get(state, path)
	if !ok || current == nil {
		// Absent path: nothing to filter, state unchanged.
		return Done(state)
	}
	seq, isSeq := current.([]any)
	if !isSeq {
		return Fail(fmt.Errorf("keel: %s: value at %q is %T, not a sequence", ActionFilter, p.Path, current))
	}
	out := make([]any, 0, len(seq))
	for _, el := range seq {
		if p.Keep(el) {
			out = append(out, el)
		}
	}
	if len(out) == len(seq) {
		// Nothing removed: keep the snapshot so subscribers stay quiet.
		return Done(state)
	}
	next, err := Update(state, path, func(any) any { return out })
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}

func mapReducer(_ context.Context, state, payload any) Result {
	p, ok := payload.(MapPayload)
	if !ok {
		return Fail(fmt.Errorf("keel: %s expects MapPayload, got %T", ActionMap, payload))
	}
	if p.Fn == nil {
		return Fail(fmt.Errorf("keel: %s requires a mapping function", ActionMap))
	}
	path := ParsePath(p.Path)
	current, ok := Get(state, path)
	if !ok || current == nil {
		return Done(state)
	}
	seq, isSeq := current.([]any)
	if !isSeq {
		return Fail(fmt.Errorf("keel: %s: value at %q is %T, not a sequence", ActionMap, p.Path, current))
	}
	out := make([]any, len(seq))
	for i, el := range seq {
		out[i] = p.Fn(el)
	}
	next, err := Update(state, path, func(any) any { return out })
	if err != nil {
		return Fail(err)
	}
	return Done(next)
}
