package streaming

import "strings"

// Append concatenates delta onto previous.
func Append(previous, delta string) string {
	return previous + delta
}

// Accumulator collects content deltas in arrival order.
type Accumulator struct {
	b strings.Builder
}

// Add applies one event. Non-content events are ignored.
func (a *Accumulator) Add(ev Event) {
	if ev.Type == EventContent {
		a.b.WriteString(ev.Content)
	}
}

// String returns the text accumulated so far.
func (a *Accumulator) String() string {
	return a.b.String()
}

// Len returns the accumulated byte length.
func (a *Accumulator) Len() int {
	return a.b.Len()
}
