package cadence

import (
	"math"
	"time"
)

// Source names where a cadence value came from
type Source int

const (
	SourceNone Source = iota
	SourceTrainer
	SourceExternal
)

func (s Source) String() string {
	switch s {
	case SourceTrainer:
		return "Trainer"
	case SourceExternal:
		return "External"
	default:
		return "None"
	}
}

// Sample is one cadence reading. Only the latest per source is kept.
type Sample struct {
	RPM    float64
	Source Source
	At     time.Time
}

// DefaultStaleAfter is how long an external reading stays trusted
const DefaultStaleAfter = 3 * time.Second

// View is the slice of control state the resolver reads
type View struct {
	Trainer           *Sample
	External          *Sample
	ExternalConnected bool
}

// Resolved is the cadence the decision engine should use
type Resolved struct {
	RPM    float64
	Source Source
}

// Resolver picks between trainer and external cadence. It keeps no state, so
// every call reflects the current time and view.
type Resolver struct {
	ExternalEnabled bool
	StaleAfter      time.Duration
}

// NewResolver creates a resolver; a zero staleAfter means DefaultStaleAfter
func NewResolver(externalEnabled bool, staleAfter time.Duration) Resolver {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return Resolver{ExternalEnabled: externalEnabled, StaleAfter: staleAfter}
}

// Resolve applies the fallback chain: a connected, fresh external sensor;
// otherwise the trainer's latest sample; otherwise 0.
func (r Resolver) Resolve(v View, now time.Time) Resolved {
	if r.externalFresh(v, now) {
		return Resolved{RPM: clampRPM(v.External.RPM), Source: SourceExternal}
	}
	if v.Trainer != nil {
		return Resolved{RPM: clampRPM(v.Trainer.RPM), Source: SourceTrainer}
	}
	return Resolved{Source: SourceNone}
}

// StaleAt returns when the current external reading stops being trusted.
// ok is false when external cadence is not currently in use.
func (r Resolver) StaleAt(v View, now time.Time) (at time.Time, ok bool) {
	if !r.externalFresh(v, now) {
		return time.Time{}, false
	}
	return v.External.At.Add(r.StaleAfter), true
}

func (r Resolver) externalFresh(v View, now time.Time) bool {
	if !r.ExternalEnabled || !v.ExternalConnected || v.External == nil {
		return false
	}
	return now.Sub(v.External.At) <= r.StaleAfter
}

func clampRPM(rpm float64) float64 {
	if math.IsNaN(rpm) || rpm < 0 {
		return 0
	}
	return rpm
}
