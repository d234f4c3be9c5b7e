package engine

import (
	"fmt"
	"time"
)

// eventRing is the bounded operator-visible event log. Entries are
// human-readable lines only; nothing reads them back for decisions.
type eventRing struct {
	entries []string
	cap     int
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		capacity = 200
	}
	return &eventRing{cap: capacity}
}

func (r *eventRing) add(text string) {
	line := fmt.Sprintf("%s | %s", time.Now().Format("15:04:05"), text)
	r.entries = append(r.entries, line)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *eventRing) tail(n int) []string {
	if n <= 0 || len(r.entries) == 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]string, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}
