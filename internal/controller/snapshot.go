// Package controller tracks the latest button and tilt state of each half of
// a Zwift Play controller pair.
package controller

import (
	"fmt"
	"math"
	"strings"
	"time"

	"pedalkeys/internal/protocol"
)

// Side identifies which half of the controller pair a snapshot came from
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Button is a physical control on one controller half
type Button string

const (
	ButtonY      Button = "Y"
	ButtonZ      Button = "Z"
	ButtonA      Button = "A"
	ButtonB      Button = "B"
	ButtonSide   Button = "Side"
	ButtonPower  Button = "On/Off"
	ButtonPaddle Button = "Paddle"
)

// AllButtons lists every button in a stable order
var AllButtons = []Button{ButtonY, ButtonZ, ButtonA, ButtonB, ButtonSide, ButtonPower, ButtonPaddle}

// ParseButton resolves a button name case-insensitively
func ParseButton(name string) (Button, error) {
	for _, b := range AllButtons {
		if strings.EqualFold(string(b), name) {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown button %q", name)
}

func (b Button) bit() ButtonSet {
	for i, known := range AllButtons {
		if known == b {
			return 1 << i
		}
	}
	return 0
}

// ButtonSet is the set of held buttons, compared by value
type ButtonSet uint8

// NewButtonSet returns a set holding the given buttons
func NewButtonSet(buttons ...Button) ButtonSet {
	var s ButtonSet
	for _, b := range buttons {
		s = s.With(b)
	}
	return s
}

// With returns a copy of s that also holds b
func (s ButtonSet) With(b Button) ButtonSet { return s | b.bit() }

// Has reports whether b is held
func (s ButtonSet) Has(b Button) bool {
	bit := b.bit()
	return bit != 0 && s&bit != 0
}

// Buttons returns the held buttons in AllButtons order
func (s ButtonSet) Buttons() []Button {
	var out []Button
	for _, b := range AllButtons {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

// Snapshot is the full state of one controller half at one instant.
// A newer snapshot replaces an older one wholesale.
type Snapshot struct {
	ControllerID string
	Side         Side
	Buttons      ButtonSet
	TiltX        float64 // -1 (full left) to 1 (full right)
	At           time.Time
}

// FromKeypad converts a decoded keypad notification into a snapshot.
// The paddle counts as a button once the analog value crosses the paddle
// threshold; the same value, scaled to [-1, 1], is the tilt.
func FromKeypad(id string, k protocol.KeypadStatus, at time.Time) Snapshot {
	side := SideLeft
	if k.RightPad {
		side = SideRight
	}

	var buttons ButtonSet
	for _, held := range []struct {
		button Button
		on     bool
	}{
		{ButtonY, k.Y},
		{ButtonZ, k.Z},
		{ButtonA, k.A},
		{ButtonB, k.B},
		{ButtonSide, k.Shift},
		{ButtonPower, k.Power},
		{ButtonPaddle, k.Paddle()},
	} {
		if held.on {
			buttons = buttons.With(held.button)
		}
	}

	tilt := float64(k.Analog) / protocol.PaddleThreshold
	tilt = math.Max(-1, math.Min(1, tilt))

	return Snapshot{
		ControllerID: id,
		Side:         side,
		Buttons:      buttons,
		TiltX:        tilt,
		At:           at,
	}
}
