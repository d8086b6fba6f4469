// Package decision maps resolved cadence and controller state to the set of
// keys that should be held. It performs no I/O.
package decision

import (
	"fmt"
	"math"

	"pedalkeys/internal/controller"
	"pedalkeys/internal/errs"
	"pedalkeys/internal/input"
)

// Band is the cadence range a value falls into
type Band int

const (
	BandBrake Band = iota // c < Lower
	BandCoast             // Lower <= c <= Upper, contributes no key
	BandForward           // Upper < c <= Boost
	BandBoost             // c > Boost
)

func (b Band) String() string {
	switch b {
	case BandBrake:
		return "brake"
	case BandCoast:
		return "coast"
	case BandForward:
		return "forward"
	case BandBoost:
		return "boost"
	}
	return "unknown"
}

// Thresholds are the cadence band edges in RPM. Boost > Upper > Lower.
type Thresholds struct {
	Boost float64
	Upper float64
	Lower float64
}

// Mapping is one controller half's button-to-key table
type Mapping map[controller.Button]input.Key

// Config is everything the engine needs. NewEngine copies it, so later
// changes by the caller have no effect.
type Config struct {
	Thresholds Thresholds

	ForwardKey input.Key
	BoostKey   input.Key
	BrakeKey   input.Key

	Left  Mapping
	Right Mapping

	SteeringEnabled bool
	Deadzone        float64
	SteerLeftKey    input.Key
	SteerRightKey   input.Key
}

// DefaultConfig returns the stock bindings
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{Boost: 100, Upper: 65, Lower: 30},
		ForwardKey: "a",
		BoostKey:   "up",
		BrakeKey:   "b",
		Left: Mapping{
			controller.ButtonY:      "up",
			controller.ButtonZ:      "left",
			controller.ButtonA:      "right",
			controller.ButtonB:      "down",
			controller.ButtonSide:   "q",
			controller.ButtonPower:  "escape",
			controller.ButtonPaddle: "left",
		},
		Right: Mapping{
			controller.ButtonY:      "x",
			controller.ButtonZ:      "y",
			controller.ButtonA:      "a",
			controller.ButtonB:      "b",
			controller.ButtonSide:   "e",
			controller.ButtonPower:  "enter",
			controller.ButtonPaddle: "right",
		},
		// Zwift Play reports tilt on the paddle axis, so steering would
		// fight the paddle bindings
		SteeringEnabled: false,
		Deadzone:        0.5,
		SteerLeftKey:    "left",
		SteerRightKey:   "right",
	}
}

// Validate checks threshold ordering and deadzone range
func (c Config) Validate() error {
	t := c.Thresholds
	if !(t.Boost > t.Upper && t.Upper > t.Lower) {
		return fmt.Errorf("%w: thresholds must satisfy boost > upper > lower (got %v, %v, %v)",
			errs.ErrConfiguration, t.Boost, t.Upper, t.Lower)
	}
	if t.Lower < 0 {
		return fmt.Errorf("%w: lower threshold must not be negative", errs.ErrConfiguration)
	}
	if c.Deadzone < 0 || c.Deadzone >= 1 {
		return fmt.Errorf("%w: steering deadzone must be in [0, 1), got %v", errs.ErrConfiguration, c.Deadzone)
	}
	return nil
}

// Input is everything one decision reads
type Input struct {
	CadenceRPM float64
	Snapshots  []controller.Snapshot
}

// Engine evaluates Decide. It is immutable and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and takes a private copy of it
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Left = cloneMapping(cfg.Left)
	cfg.Right = cloneMapping(cfg.Right)
	return &Engine{cfg: cfg}, nil
}

// Thresholds returns the configured band edges
func (e *Engine) Thresholds() Thresholds { return e.cfg.Thresholds }

// CadenceBand returns the band c falls into
func (e *Engine) CadenceBand(c float64) Band {
	t := e.cfg.Thresholds
	switch {
	case c > t.Boost:
		return BandBoost
	case c > t.Upper:
		return BandForward
	case c >= t.Lower:
		return BandCoast
	default:
		return BandBrake
	}
}

// CadenceKeys returns the keys contributed by cadence alone
func (e *Engine) CadenceKeys(c float64) input.KeySet {
	switch e.CadenceBand(c) {
	case BandBoost:
		return input.NewKeySet(e.cfg.ForwardKey, e.cfg.BoostKey)
	case BandForward:
		return input.NewKeySet(e.cfg.ForwardKey)
	case BandBrake:
		return input.NewKeySet(e.cfg.BrakeKey)
	}
	return input.NewKeySet()
}

// ControllerKeys returns the keys contributed by one controller half
func (e *Engine) ControllerKeys(s controller.Snapshot) input.KeySet {
	table := e.cfg.Left
	if s.Side == controller.SideRight {
		table = e.cfg.Right
	}

	keys := input.NewKeySet()
	for _, b := range s.Buttons.Buttons() {
		if k, ok := table[b]; ok {
			keys.Add(k)
		}
	}

	if e.cfg.SteeringEnabled && math.Abs(s.TiltX) > e.cfg.Deadzone {
		if s.TiltX < 0 {
			keys.Add(e.cfg.SteerLeftKey)
		} else {
			keys.Add(e.cfg.SteerRightKey)
		}
	}
	return keys
}

// Decide returns the union of cadence keys and every controller's keys.
// Opposing keys are not resolved against each other.
func (e *Engine) Decide(in Input) input.KeySet {
	keys := e.CadenceKeys(in.CadenceRPM)
	for _, s := range in.Snapshots {
		keys.Union(e.ControllerKeys(s))
	}
	return keys
}

func cloneMapping(m Mapping) Mapping {
	c := make(Mapping, len(m))
	for b, k := range m {
		c[b] = k
	}
	return c
}
