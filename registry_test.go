package keel

import (
	"context"
	"testing"
)

func TestRegistry_BuiltinsPreRegistered(t *testing.T) {
	r := NewRegistry()
	for _, actionType := range []string{
		ActionSet, ActionDelete, ActionTransform, ActionPush, ActionFilter, ActionMap,
	} {
		if _, ok := r.Resolve(actionType); !ok {
			t.Errorf("expected built-in %s to be registered", actionType)
		}
	}
}

func TestRegistry_ResolveMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Resolve("nobody-home"); ok {
		t.Error("expected unregistered type to be absent")
	}
}

func TestRegistry_LastWriteWins(t *testing.T) {
	r := NewRegistry()

	first := func(_ context.Context, _, _ any) Result { return Done("first") }
	second := func(_ context.Context, _, _ any) Result { return Done("second") }

	r.Register("custom", first)
	r.Register("custom", second)

	fn, ok := r.Resolve("custom")
	if !ok {
		t.Fatal("expected reducer to resolve")
	}
	if res := fn(context.Background(), nil, nil); res.state != "second" {
		t.Errorf("expected the later registration, got %v", res.state)
	}
}
