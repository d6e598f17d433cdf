// Package inflight enforces at most one outstanding operation per key.
// A second attempt while one is running is rejected, never queued.
package inflight

import (
	"errors"
	"sync"
)

// ErrBusy is returned when the key already has an operation in flight.
var ErrBusy = errors.New("an operation is already in flight for this key")

type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func New() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire marks key busy. The returned release func is idempotent.
func (g *Guard) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active == nil {
		g.active = make(map[string]struct{})
	}
	if _, busy := g.active[key]; busy {
		return nil, ErrBusy
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key currently has an operation in flight.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}
