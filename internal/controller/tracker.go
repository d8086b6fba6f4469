package controller

import "sort"

// Tracker holds the latest snapshot per side. It has a single owner (the
// pipeline loop) and is not safe for concurrent use.
type Tracker struct {
	sides map[Side]Snapshot
}

// NewTracker creates an empty tracker; every side starts all-released
func NewTracker() *Tracker {
	return &Tracker{sides: make(map[Side]Snapshot)}
}

// Update replaces the snapshot for s.Side
func (t *Tracker) Update(s Snapshot) {
	t.sides[s.Side] = s
}

// Disconnect resets every side last reported by controllerID to all-released.
// It returns true when anything was cleared.
func (t *Tracker) Disconnect(controllerID string) bool {
	cleared := false
	for side, s := range t.sides {
		if s.ControllerID == controllerID {
			delete(t.sides, side)
			cleared = true
		}
	}
	return cleared
}

// Snapshots returns a copy of every live snapshot, left side first
func (t *Tracker) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(t.sides))
	for _, s := range t.sides {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Side < out[j].Side })
	return out
}
