package keel

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is an opaque handle identifying one subscriber.
type Subscription string

type subscriber struct {
	paths    []Path
	callback func(next any)
}

// hub tracks subscribers and the paths they watch. Paths are parsed once
// at registration.
type hub struct {
	mu   sync.RWMutex
	subs map[Subscription]*subscriber
}

func newHub() *hub {
	return &hub{subs: make(map[Subscription]*subscriber)}
}

func (h *hub) subscribe(paths []string, callback func(next any)) Subscription {
	parsed := make([]Path, len(paths))
	for i, p := range paths {
		parsed[i] = ParsePath(p)
	}
	handle := Subscription(uuid.NewString())
	h.mu.Lock()
	h.subs[handle] = &subscriber{paths: parsed, callback: callback}
	h.mu.Unlock()
	return handle
}

func (h *hub) unsubscribe(handle Subscription) {
	h.mu.Lock()
	delete(h.subs, handle)
	h.mu.Unlock()
}

// notify invokes each subscriber whose watched paths changed identity
// between prev and next, once per install regardless of how many of its
// paths changed. Returns how many subscribers fired.
func (h *hub) notify(prev, next any) int {
	h.mu.RLock()
	var fire []func(next any)
	for _, sub := range h.subs {
		if sub.affected(prev, next) {
			fire = append(fire, sub.callback)
		}
	}
	h.mu.RUnlock()

	for _, callback := range fire {
		callback(next)
	}
	return len(fire)
}

func (sub *subscriber) affected(prev, next any) bool {
	for _, path := range sub.paths {
		before, _ := Get(prev, path)
		after, _ := Get(next, path)
		if !identical(before, after) {
			return true
		}
	}
	return false
}
