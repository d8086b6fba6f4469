// Package pipeline owns the control state. It folds device events into it,
// decides the target keys on every change and drives the emitter toward
// them.
package pipeline

import (
	"context"
	"time"

	"pedalkeys/internal/cadence"
	"pedalkeys/internal/controller"
	"pedalkeys/internal/decision"
	"pedalkeys/internal/device"
	"pedalkeys/internal/input"
	"pedalkeys/internal/overlay"

	log "github.com/sirupsen/logrus"
)

// Options wires a Pipeline
type Options struct {
	Engine   *decision.Engine
	Resolver cadence.Resolver
	Emitter  *input.Emitter

	// Board receives a Status after every recompute (optional)
	Board *overlay.Board

	// Now defaults to time.Now
	Now func() time.Time
}

// ControlState is the fused view of every device. Only the pipeline loop
// writes it.
type ControlState struct {
	Trainer  *cadence.Sample
	External *cadence.Sample
	Power    *device.PowerSample
	Tracker  *controller.Tracker
	Health   map[string]device.HealthChange
}

func newControlState() ControlState {
	return ControlState{
		Tracker: controller.NewTracker(),
		Health:  make(map[string]device.HealthChange),
	}
}

// CadenceView is the slice of state the resolver reads
func (s *ControlState) CadenceView() cadence.View {
	return cadence.View{
		Trainer:           s.Trainer,
		External:          s.External,
		ExternalConnected: s.Health["external"].Health == device.HealthConnected,
	}
}

// Pipeline is the single consumer of the device event stream
type Pipeline struct {
	engine   *decision.Engine
	resolver cadence.Resolver
	emitter  *input.Emitter
	board    *overlay.Board
	now      func() time.Time

	state    ControlState
	resolved cadence.Resolved

	paused bool
	toggle chan struct{}
}

// New creates a pipeline with empty state
func New(opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		engine:   opts.Engine,
		resolver: opts.Resolver,
		emitter:  opts.Emitter,
		board:    opts.Board,
		now:      now,
		state:    newControlState(),
		toggle:   make(chan struct{}, 4),
	}
}

// TogglePause suspends or resumes key output. While paused every key is
// released and devices keep updating the state. Safe to call from any
// goroutine.
func (p *Pipeline) TogglePause() {
	select {
	case p.toggle <- struct{}{}:
	default:
		log.Warn("Pipeline: Pause toggle dropped, too many pending")
	}
}

// Run consumes events until ctx is cancelled or events is closed. Every
// held key is released before it returns.
func (p *Pipeline) Run(ctx context.Context, events <-chan device.Event) error {
	defer func() {
		if tr := p.emitter.ReleaseAll(); len(tr.Released) > 0 {
			log.Infof("Pipeline: Released %v on shutdown", tr.Released)
		}
	}()

	var (
		stale   *time.Timer
		staleCh <-chan time.Time
	)
	defer func() {
		if stale != nil {
			stale.Stop()
		}
	}()

	// the external sample can go stale with no further events, so a timer
	// forces a recompute at the deadline
	arm := func() {
		if stale != nil {
			stale.Stop()
			stale, staleCh = nil, nil
		}
		now := p.now()
		if at, ok := p.resolver.StaleAt(p.state.CadenceView(), now); ok {
			stale = time.NewTimer(at.Sub(now) + time.Millisecond)
			staleCh = stale.C
		}
	}

	p.recompute()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.Process(ev)
			arm()

		case <-p.toggle:
			p.setPaused(!p.paused)

		case <-staleCh:
			stale, staleCh = nil, nil
			log.Info("Pipeline: External cadence stale, falling back")
			p.recompute()
			arm()
		}
	}
}

func (p *Pipeline) setPaused(paused bool) input.Transitions {
	p.paused = paused
	if paused {
		log.Info("Pipeline: Paused, keys released")
	} else {
		log.Info("Pipeline: Resumed")
	}
	return p.recompute()
}

// Process folds ev into the state and recomputes
func (p *Pipeline) Process(ev device.Event) input.Transitions {
	p.apply(ev)
	return p.recompute()
}

// State exposes the control state for inspection
func (p *Pipeline) State() *ControlState { return &p.state }

// Resolved is the cadence used by the last recompute
func (p *Pipeline) Resolved() cadence.Resolved { return p.resolved }

func (p *Pipeline) apply(ev device.Event) {
	switch {
	case ev.Health != nil:
		p.applyHealth(ev)

	case ev.Cadence != nil:
		s := *ev.Cadence
		switch s.Source {
		case cadence.SourceTrainer:
			p.state.Trainer = &s
		case cadence.SourceExternal:
			p.state.External = &s
		}

	case ev.Power != nil:
		pw := *ev.Power
		p.state.Power = &pw

	case ev.Controller != nil:
		p.state.Tracker.Update(*ev.Controller)
	}
}

func (p *Pipeline) applyHealth(ev device.Event) {
	h := *ev.Health
	prev, seen := p.state.Health[ev.Device]
	p.state.Health[ev.Device] = h

	entry := log.WithFields(log.Fields{"device": ev.Device, "health": h.Health.String()})
	if !seen || prev.Health != h.Health || prev.Degraded != h.Degraded {
		if h.Degraded {
			entry.Warn("Pipeline: Device degraded")
		} else {
			entry.Debug("Pipeline: Device health changed")
		}
	}

	if h.Health == device.HealthConnected {
		return
	}

	// a dropped device must not keep its last reading alive
	switch ev.Kind {
	case device.KindTrainer:
		p.state.Trainer = nil
		p.state.Power = nil
	case device.KindExternal:
		p.state.External = nil
	case device.KindController:
		if p.state.Tracker.Disconnect(ev.Device) {
			log.WithField("device", ev.Device).Info("Pipeline: Controller released")
		}
	}
}

func (p *Pipeline) recompute() input.Transitions {
	now := p.now()
	p.resolved = p.resolver.Resolve(p.state.CadenceView(), now)

	target := input.NewKeySet()
	if !p.paused {
		target = p.engine.Decide(decision.Input{
			CadenceRPM: p.resolved.RPM,
			Snapshots:  p.state.Tracker.Snapshots(),
		})
	}
	tr := p.emitter.Apply(target)
	if !tr.Empty() {
		log.WithFields(log.Fields{
			"rpm":    p.resolved.RPM,
			"source": p.resolved.Source.String(),
		}).Debugf("Pipeline: released %v pressed %v", tr.Released, tr.Pressed)
	}

	if p.board != nil {
		p.board.Set(p.status(now))
	}
	return tr
}

func (p *Pipeline) status(now time.Time) overlay.Status {
	st := overlay.Status{
		Cadence: p.resolved.RPM,
		Source:  p.resolved.Source.String(),
		Band:    p.engine.CadenceBand(p.resolved.RPM).String(),
		Keys:    p.emitter.Held().Names(),
		Paused:  p.paused,
		Health:  make(map[string]string, len(p.state.Health)),
		At:      now,
	}
	if p.state.Power != nil {
		w := p.state.Power.Watts
		st.PowerWatts = &w
	}
	for id, h := range p.state.Health {
		name := h.Health.String()
		if h.Degraded {
			name = "degraded"
		}
		st.Health[id] = name
	}
	return st
}
