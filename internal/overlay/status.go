// Package overlay publishes a read-only view of the pipeline to status
// outputs: the UDP overlay window, the browser overlay, the tray and the
// console.
package overlay

import (
	"sort"
	"sync"
	"time"

	"pedalkeys/internal/protocol"
)

// Status is what the pipeline last decided
type Status struct {
	Cadence    float64
	Source     string
	Band       string
	PowerWatts *int
	Keys       []string
	Paused     bool
	Health     map[string]string // device ID -> health
	At         time.Time
}

// Clone returns a deep copy of s
func (s Status) Clone() Status {
	out := s
	if s.PowerWatts != nil {
		w := *s.PowerWatts
		out.PowerWatts = &w
	}
	out.Keys = append([]string(nil), s.Keys...)
	if s.Health != nil {
		out.Health = make(map[string]string, len(s.Health))
		for k, v := range s.Health {
			out.Health[k] = v
		}
	}
	return out
}

// Devices returns the device IDs in Health, sorted
func (s Status) Devices() []string {
	ids := make([]string, 0, len(s.Health))
	for id := range s.Health {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Payload converts s to the WebSocket status payload
func (s Status) Payload() protocol.StatusPayload {
	c := s.Clone()
	keys := c.Keys
	if keys == nil {
		keys = []string{}
	}
	devices := c.Health
	if devices == nil {
		devices = map[string]string{}
	}
	return protocol.StatusPayload{
		Cadence:    c.Cadence,
		Source:     c.Source,
		Band:       c.Band,
		PowerWatts: c.PowerWatts,
		Keys:       keys,
		Paused:     c.Paused,
		Devices:    devices,
		Timestamp:  c.At.UnixMilli(),
	}
}

// Board holds the latest Status. The pipeline writes it, sinks read it.
type Board struct {
	mu     sync.RWMutex
	status Status
}

// NewBoard creates a board reporting idle cadence
func NewBoard() *Board {
	return &Board{status: Status{Source: "None"}}
}

// Set replaces the current status
func (b *Board) Set(s Status) {
	s = s.Clone()
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

// Get returns a copy of the current status
func (b *Board) Get() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status.Clone()
}

