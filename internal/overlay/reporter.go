package overlay

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultInterval refreshes outputs at 10 Hz
const DefaultInterval = 100 * time.Millisecond

// Sink is one status output
type Sink interface {
	Name() string
	Publish(Status) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc struct {
	Label string
	Fn    func(Status) error
}

func (f SinkFunc) Name() string           { return f.Label }
func (f SinkFunc) Publish(s Status) error { return f.Fn(s) }

// Reporter pushes the Board to every sink on a fixed period. Sink errors
// are logged and never reach the pipeline.
type Reporter struct {
	board    *Board
	interval time.Duration
	sinks    []Sink
	failing  map[string]bool
}

// NewReporter creates a reporter; interval <= 0 means DefaultInterval
func NewReporter(board *Board, interval time.Duration, sinks ...Sink) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		board:    board,
		interval: interval,
		sinks:    sinks,
		failing:  make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled
func (r *Reporter) Run(ctx context.Context) {
	if len(r.sinks) == 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publish(r.board.Get())
		}
	}
}

func (r *Reporter) publish(s Status) {
	for _, sink := range r.sinks {
		err := r.safePublish(sink, s)
		name := sink.Name()
		switch {
		case err != nil && !r.failing[name]:
			r.failing[name] = true
			log.WithField("sink", name).Warnf("Overlay: Publish failed: %v", err)
		case err != nil:
			log.WithField("sink", name).Debugf("Overlay: Publish failed: %v", err)
		case r.failing[name]:
			delete(r.failing, name)
			log.WithField("sink", name).Info("Overlay: Sink recovered")
		}
	}
}

// safePublish keeps a panicking sink from taking down the reporter
func (r *Reporter) safePublish(sink Sink, s Status) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return sink.Publish(s)
}
