package keel

import "testing"

func TestIdentical_Scalars(t *testing.T) {
	if !identical(1, 1) {
		t.Error("equal ints must be identical")
	}
	if identical(1, 2) {
		t.Error("different ints must not be identical")
	}
	if !identical("a", "a") {
		t.Error("equal strings must be identical")
	}
	if identical(1, int64(1)) {
		t.Error("different types must not be identical")
	}
}

func TestIdentical_Nil(t *testing.T) {
	if !identical(nil, nil) {
		t.Error("nil must be identical to nil")
	}
	if identical(nil, 1) || identical(1, nil) {
		t.Error("nil must not be identical to a value")
	}
}

func TestIdentical_Maps(t *testing.T) {
	m := map[string]any{"a": 1}
	copied := map[string]any{"a": 1}

	if !identical(m, m) {
		t.Error("a map must be identical to itself")
	}
	if identical(m, copied) {
		t.Error("structurally equal maps must not be identical")
	}
}

func TestIdentical_Slices(t *testing.T) {
	s := []any{1, 2}
	copied := []any{1, 2}

	if !identical(s, s) {
		t.Error("a slice must be identical to itself")
	}
	if identical(s, copied) {
		t.Error("structurally equal slices must not be identical")
	}
	if identical(s, s[:1]) {
		t.Error("slices of different length must not be identical")
	}
	if !identical([]any{}, []any{}) {
		t.Error("empty slices compare identical")
	}
}

func TestIdentical_Funcs(t *testing.T) {
	fn := func() int { return 1 }
	other := func() int { return 2 }

	if !identical(fn, fn) {
		t.Error("a func must be identical to itself")
	}
	if identical(fn, other) {
		t.Error("distinct funcs must not be identical")
	}
}
