// Package ratelimit provides a sliding-window limiter keyed by user identity.
package ratelimit

import (
	"sync"
	"time"
)

// Feedback submissions allowed per user per window.
const (
	DefaultFeedbackLimit  = 10
	DefaultFeedbackWindow = 5 * time.Minute
)

// Limiter allows at most Limit events per Window for each key.
type Limiter struct {
	Limit  int
	Window time.Duration

	mu     sync.Mutex
	now    func() time.Time
	events map[string][]time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		Limit:  limit,
		Window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key and reports whether it is within the limit.
// Rejected events are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	recent := l.prune(key, now)
	if len(recent) >= l.Limit {
		return false
	}
	l.events[key] = append(recent, now)
	return true
}

// Remaining reports how many events key may still record in the window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.Limit - len(l.prune(key, l.clock()))
	if n < 0 {
		return 0
	}
	return n
}

// Sweep drops keys with no events inside the window.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	removed := 0
	for key := range l.events {
		if len(l.prune(key, now)) == 0 {
			removed++
		}
	}
	return removed
}

// prune keeps only events newer than the window; the caller holds mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	if l.events == nil {
		l.events = make(map[string][]time.Time)
	}
	cutoff := now.Add(-l.Window)
	events := l.events[key]
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.events, key)
		return nil
	}
	l.events[key] = kept
	return kept
}

func (l *Limiter) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}
