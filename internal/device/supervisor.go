package device

import (
	"context"
	"fmt"
	"time"

	"pedalkeys/internal/errs"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// BackoffConfig controls reconnect pacing
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	RetryLimit int

	// Jitter is the backoff randomization factor (0 disables it)
	Jitter float64
}

// DefaultBackoff starts at 1s and settles at a 5s reconnect interval
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        5 * time.Second,
		RetryLimit: 10,
		Jitter:     0.1,
	}
}

func (c BackoffConfig) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Initial
	b.MaxInterval = c.Max
	b.Multiplier = 2
	b.RandomizationFactor = c.Jitter
	b.MaxElapsedTime = 0 // never give up
	b.Reset()
	return b
}

// Supervisor keeps one Stream connected. Each cycle opens a fresh link and
// a fresh decoder; nothing is carried over from a dropped connection.
type Supervisor struct {
	transport Transport
	stream    Stream
	backoff   BackoffConfig
	log       *log.Entry
}

// NewSupervisor creates a supervisor for stream
func NewSupervisor(t Transport, stream Stream, b BackoffConfig) *Supervisor {
	return &Supervisor{
		transport: t,
		stream:    stream,
		backoff:   b,
		log:       log.WithFields(log.Fields{"device": stream.ID, "address": stream.Address}),
	}
}

// Run connects, forwards events to out and reconnects with exponential
// backoff until ctx is cancelled. It never returns an error: every device
// failure is transient.
func (s *Supervisor) Run(ctx context.Context, out chan<- Event) {
	policy := s.backoff.policy()
	failures := 0

	for {
		connected, err := s.session(ctx, out)
		if ctx.Err() != nil {
			return
		}

		if connected {
			failures = 0
			policy.Reset()
			s.log.Warnf("Device: %s disconnected: %v", s.stream.ID, err)
			s.health(ctx, out, HealthChange{Health: HealthDisconnected, Err: err})
		} else {
			failures++
			s.log.Debugf("Device: %s connect attempt %d failed: %v", s.stream.ID, failures, err)
			if failures == s.backoff.RetryLimit {
				s.log.Errorf("Device: %s unreachable after %d attempts, still retrying", s.stream, failures)
				s.health(ctx, out, HealthChange{Health: HealthDisconnected, Degraded: true, Err: err})
			}
		}

		s.health(ctx, out, HealthChange{Health: HealthReconnecting, Degraded: failures >= s.backoff.RetryLimit})

		wait := policy.NextBackOff()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected reports whether the link came up.
func (s *Supervisor) session(ctx context.Context, out chan<- Event) (connected bool, err error) {
	conn, err := s.transport.Connect(ctx, s.stream.Address)
	if err != nil {
		return false, fmt.Errorf("%w: connect: %v", errs.ErrTransientDevice, err)
	}
	defer conn.Disconnect()

	notifications, err := conn.Subscribe(s.stream.Service, s.stream.Characteristic)
	if err != nil {
		return false, fmt.Errorf("%w: subscribe: %v", errs.ErrTransientDevice, err)
	}

	if h := s.stream.Handshake; h != nil {
		if h.Indicate != "" {
			if _, err := conn.Subscribe(h.Service, h.Indicate); err != nil {
				s.log.Debugf("Device: %s indicate subscribe failed: %v", s.stream.ID, err)
			}
		}
		if err := conn.Write(h.Service, h.Characteristic, h.Data); err != nil {
			return false, fmt.Errorf("%w: handshake: %v", errs.ErrTransientDevice, err)
		}
	}

	s.log.Infof("Device: %s connected", s.stream)
	s.health(ctx, out, HealthChange{Health: HealthConnected})

	decoder := s.stream.NewDecoder()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-conn.Done():
			return true, fmt.Errorf("%w: link lost", errs.ErrTransientDevice)
		case data, ok := <-notifications:
			if !ok {
				return true, fmt.Errorf("%w: notifications closed", errs.ErrTransientDevice)
			}
			now := time.Now()
			events, err := decoder.Decode(data, now)
			if err != nil {
				s.log.Debugf("Device: %s dropped payload % X: %v", s.stream.ID, data, err)
				continue
			}
			for _, ev := range events {
				s.emit(ctx, out, ev, now)
			}
		}
	}
}

func (s *Supervisor) health(ctx context.Context, out chan<- Event, h HealthChange) {
	s.emit(ctx, out, Event{Health: &h}, time.Now())
}

func (s *Supervisor) emit(ctx context.Context, out chan<- Event, ev Event, at time.Time) {
	ev.Device = s.stream.ID
	ev.Kind = s.stream.Kind
	if ev.At.IsZero() {
		ev.At = at
	}
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
