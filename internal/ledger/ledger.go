// Package ledger tracks the event subscriptions a coordinator creates so they
// can all be torn down in one step.
package ledger

import "github.com/pinmap/pinstate/internal/events"

// Kind is the marker event a listener was registered for.
type Kind string

const (
	MouseOver Kind = "mouseover"
	MouseOut  Kind = "mouseout"
	Click     Kind = "click"
)

// Record pairs a subscription with the marker index and event kind it serves.
type Record struct {
	Marker   int
	Kind     Kind
	Listener *events.Listener
}

// Ledger holds every tracked subscription exactly once.
type Ledger struct {
	records []Record
	seen    map[*events.Listener]struct{}
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[*events.Listener]struct{})}
}

// Add tracks r. A listener already tracked, or a nil one, is ignored.
func (l *Ledger) Add(r Record) {
	if r.Listener == nil {
		return
	}
	if _, ok := l.seen[r.Listener]; ok {
		return
	}
	l.seen[r.Listener] = struct{}{}
	l.records = append(l.records, r)
}

// Clear deregisters every tracked listener and empties the ledger.
func (l *Ledger) Clear() {
	for _, r := range l.records {
		r.Listener.Remove()
	}
	l.records = nil
	l.seen = make(map[*events.Listener]struct{})
}

// Len returns the number of tracked listeners.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy of the tracked records in insertion order.
func (l *Ledger) Records() []Record {
	return append([]Record(nil), l.records...)
}

// CountKind returns how many tracked listeners serve kind.
func (l *Ledger) CountKind(kind Kind) int {
	n := 0
	for _, r := range l.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}
