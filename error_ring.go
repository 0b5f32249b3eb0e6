package keel

import (
	"sync"
	"time"
)

// DispatchError records one failed derivation.
type DispatchError struct {
	Action string
	Err    error
	At     time.Time
}

// errorRing is a thread-safe ring buffer of recent dispatch failures.
type errorRing struct {
	mu      sync.RWMutex
	records []DispatchError
	size    int
	head    int
	count   int
}

// newErrorRing creates a ring buffer with the given capacity.
// If size is 0, the ring buffer is disabled.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{
		records: make([]DispatchError, size),
		size:    size,
	}
}

// push adds a failure record to the ring buffer.
func (r *errorRing) push(rec DispatchError) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.head] = rec
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// all returns the retained records, oldest first.
func (r *errorRing) all() []DispatchError {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([]DispatchError, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		result[i] = r.records[(start+i)%r.size]
	}
	return result
}
