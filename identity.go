package keel

import "reflect"

// identical reports whether a and b are the same value by reference
// identity. Structural sharing guarantees untouched subtrees keep their
// container headers across snapshots, so pointer comparison is exact for
// maps and slices. Comparable scalars fall back to ==; anything else is
// treated as changed.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	case reflect.Slice:
		if av.Len() != bv.Len() {
			return false
		}
		return av.Len() == 0 || av.Pointer() == bv.Pointer()
	default:
		if av.Comparable() {
			return av.Equal(bv)
		}
		return false
	}
}
