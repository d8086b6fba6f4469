package input

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Injector delivers synthetic key events to the OS. Press and Release for a
// key the platform cannot express return an error wrapping errs.ErrInputLayer.
type Injector interface {
	Press(k Key) error
	Release(k Key) error
	Close() error
}

// LogInjector only logs key events. Used for --dry-run and on machines where
// the real injector is unavailable.
type LogInjector struct {
	mu     sync.Mutex
	events []string
}

// NewLogInjector creates a logging injector
func NewLogInjector() *LogInjector {
	return &LogInjector{}
}

// Press logs a key down
func (l *LogInjector) Press(k Key) error {
	l.record("press " + string(k))
	return nil
}

// Release logs a key up
func (l *LogInjector) Release(k Key) error {
	l.record("release " + string(k))
	return nil
}

// Close is a no-op
func (l *LogInjector) Close() error { return nil }

// Events returns every event logged so far
func (l *LogInjector) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *LogInjector) record(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	log.Debugf("Input: (dry run) %s", ev)
}
