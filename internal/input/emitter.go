package input

import (
	"fmt"
	"sync"

	"pedalkeys/internal/errs"

	log "github.com/sirupsen/logrus"
)

// Transitions lists the key events one Apply actually delivered
type Transitions struct {
	Released []Key
	Pressed  []Key
}

// Empty reports whether nothing was sent
func (t Transitions) Empty() bool {
	return len(t.Released) == 0 && len(t.Pressed) == 0
}

// Emitter owns the set of keys currently held down and moves it toward a
// target set with the fewest press/release events. Calls are serialized, so
// the most recent Apply always wins.
type Emitter struct {
	mu       sync.Mutex
	injector Injector
	held     KeySet
}

// NewEmitter creates an emitter with nothing held
func NewEmitter(injector Injector) *Emitter {
	return &Emitter{
		injector: injector,
		held:     NewKeySet(),
	}
}

// Apply releases held keys missing from target, then presses target keys not
// yet held. A key whose event the OS refuses twice keeps its previous state,
// so the next Apply retries the transition.
func (e *Emitter) Apply(target KeySet) Transitions {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tr Transitions
	for _, k := range e.held.Minus(target) {
		if e.send(k, false) {
			delete(e.held, k)
			tr.Released = append(tr.Released, k)
		}
	}
	for _, k := range target.Minus(e.held) {
		if e.send(k, true) {
			e.held.Add(k)
			tr.Pressed = append(tr.Pressed, k)
		}
	}
	return tr
}

// ReleaseAll releases every held key. It is called on every shutdown path,
// so a key the OS still refuses after the retry is logged and forgotten
// rather than kept for a diff that will never come.
func (e *Emitter) ReleaseAll() Transitions {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tr Transitions
	for _, k := range e.held.Sorted() {
		if e.send(k, false) {
			tr.Released = append(tr.Released, k)
		} else {
			log.Warnf("Input: Giving up on releasing %s, it may stay down until pressed again", k)
		}
		delete(e.held, k)
	}
	return tr
}

// Held returns a copy of the keys currently held down
func (e *Emitter) Held() KeySet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held.Clone()
}

// send delivers one event, retrying once
func (e *Emitter) send(k Key, pressed bool) bool {
	action, fn := "release", e.injector.Release
	if pressed {
		action, fn = "press", e.injector.Press
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = fn(k); err == nil {
			log.Debugf("Input: %s %s", action, k)
			return true
		}
	}

	err = fmt.Errorf("%s %s: %w: %v", action, k, errs.ErrInputLayer, err)
	log.WithField("key", string(k)).Warnf("Input: %v", err)
	return false
}
