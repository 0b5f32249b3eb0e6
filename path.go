package keel

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a parsed Path: a mapping key or a sequence index.
// Index segments keep their raw text in Key so paths round-trip through
// String and so they can address mapping parents as ordinary keys.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a location within a state tree. The empty path addresses
// the whole state.
type Path []Segment

// ParsePath parses a dot-delimited path into typed segments. A segment
// consisting entirely of decimal digits parses as an index; against a
// mapping parent an index segment addresses its raw text as an ordinary
// string key.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	path := make(Path, len(parts))
	for i, part := range parts {
		if n, ok := parseIndex(part); ok {
			path[i] = Segment{Key: part, Index: n, IsIndex: true}
		} else {
			path[i] = Segment{Key: part}
		}
	}
	return path
}

// String returns the dot-delimited form of the path.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.Key
	}
	return strings.Join(parts, ".")
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Get resolves path against state. A missing path is not a failure: the
// second return is false and the value is nil.
func Get(state any, path Path) (any, bool) {
	current := state
	for _, seg := range path {
		switch node := current.(type) {
		case map[string]any:
			child, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			current = child
		case []any:
			if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(node) {
				return nil, false
			}
			current = node[seg.Index]
		default:
			return nil, false
		}
	}
	return current, true
}

// Updater computes the new value at a path from the old one. The old
// value is nil when the path does not resolve.
type Updater func(old any) any

// Update returns a new root whose value at path is fn applied to the old
// value there. Every container along the path is freshly allocated; every
// subtree off the path is shared by reference with state. Missing
// intermediate containers are created on descent: a sequence when the
// segment addressing them is an index, a mapping otherwise. Writing at
// exactly the length of a sequence appends; writing further past the end
// is an error, as is descending through a non-container leaf. The empty
// path replaces the root with fn(state).
func Update(state any, path Path, fn Updater) (any, error) {
	return updateNode(state, path, fn)
}

func updateNode(node any, path Path, fn Updater) (any, error) {
	if len(path) == 0 {
		return fn(node), nil
	}
	seg, rest := path[0], path[1:]

	if node == nil {
		if seg.IsIndex {
			node = []any{}
		} else {
			node = map[string]any{}
		}
	}

	switch parent := node.(type) {
	case map[string]any:
		child, err := updateNode(parent[seg.Key], rest, fn)
		if err != nil {
			return nil, err
		}
		next := make(map[string]any, len(parent)+1)
		for k, v := range parent {
			next[k] = v
		}
		next[seg.Key] = child
		return next, nil

	case []any:
		if !seg.IsIndex {
			return nil, fmt.Errorf("keel: segment %q is not an index into a sequence", seg.Key)
		}
		if seg.Index < 0 || seg.Index > len(parent) {
			return nil, fmt.Errorf("keel: index %d out of range for sequence of length %d", seg.Index, len(parent))
		}
		var old any
		if seg.Index < len(parent) {
			old = parent[seg.Index]
		}
		child, err := updateNode(old, rest, fn)
		if err != nil {
			return nil, err
		}
		next := make([]any, len(parent), len(parent)+1)
		copy(next, parent)
		if seg.Index == len(parent) {
			next = append(next, child)
		} else {
			next[seg.Index] = child
		}
		return next, nil

	default:
		return nil, fmt.Errorf("keel: cannot descend into %T at %q", node, seg.Key)
	}
}

// Remove returns a new root without the entry at path, with the same
// sharing contract as Update. Removing a path that does not resolve is a
// no-op returning state itself. The root cannot be removed; use Update
// with the empty path to replace it.
func Remove(state any, path Path) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("keel: cannot remove the empty path")
	}
	next, removed := removeNode(state, path)
	if !removed {
		return state, nil
	}
	return next, nil
}

func removeNode(node any, path Path) (any, bool) {
	seg, rest := path[0], path[1:]

	switch parent := node.(type) {
	case map[string]any:
		child, ok := parent[seg.Key]
		if !ok {
			return node, false
		}
		if len(rest) == 0 {
			next := make(map[string]any, len(parent))
			for k, v := range parent {
				if k != seg.Key {
					next[k] = v
				}
			}
			return next, true
		}
		newChild, removed := removeNode(child, rest)
		if !removed {
			return node, false
		}
		next := make(map[string]any, len(parent))
		for k, v := range parent {
			next[k] = v
		}
		next[seg.Key] = newChild
		return next, true

	case []any:
		if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(parent) {
			return node, false
		}
		if len(rest) == 0 {
			next := make([]any, 0, len(parent)-1)
			next = append(next, parent[:seg.Index]...)
			next = append(next, parent[seg.Index+1:]...)
			return next, true
		}
		newChild, removed := removeNode(parent[seg.Index], rest)
		if !removed {
			return node, false
		}
		next := make([]any, len(parent))
		copy(next, parent)
		next[seg.Index] = newChild
		return next, true

	default:
		return node, false
	}
}
