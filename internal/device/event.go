// Package device connects to the BLE sensors (trainer, external cadence
// sensor, Zwift Play controllers) and turns their notifications into a
// single stream of typed events.
package device

import (
	"time"

	"pedalkeys/internal/cadence"
	"pedalkeys/internal/controller"
)

// Kind is the role a device plays
type Kind int

const (
	KindTrainer Kind = iota
	KindExternal
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindTrainer:
		return "trainer"
	case KindExternal:
		return "external"
	case KindController:
		return "controller"
	}
	return "unknown"
}

// Health is the connection state of one device
type Health int

const (
	HealthDisconnected Health = iota
	HealthConnected
	HealthReconnecting
)

func (h Health) String() string {
	switch h {
	case HealthConnected:
		return "connected"
	case HealthReconnecting:
		return "reconnecting"
	}
	return "disconnected"
}

// HealthChange reports a connection state transition
type HealthChange struct {
	Health Health

	// Degraded is set once consecutive connection failures reach the retry
	// limit. The supervisor keeps retrying.
	Degraded bool

	Err error
}

// PowerSample is the trainer's instantaneous power
type PowerSample struct {
	Watts int
	At    time.Time
}

// Event is one item on the device stream. Exactly one of the pointer
// fields is set.
type Event struct {
	Device string // stable stream ID, e.g. "trainer" or "controller:AA:BB:..."
	Kind   Kind
	At     time.Time

	Cadence    *cadence.Sample
	Power      *PowerSample
	Controller *controller.Snapshot
	Health     *HealthChange
}
