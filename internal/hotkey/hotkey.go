// Package hotkey provides global system-wide hotkey monitoring.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Manager handles global hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // keys currently held
	stop         func()          // set by startPlatform, undoes it
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "P"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
	}
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+P") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	parts := ParseCombo(hotkeyStr)
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty hotkey %q", hotkeyStr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// ParseCombo splits "Ctrl+Alt+P" into normalized key names
func ParseCombo(s string) []string {
	var parts []string
	for _, p := range strings.Split(strings.ToUpper(s), "+") {
		p = strings.TrimSpace(p)
		switch p {
		case "":
			continue
		case "CONTROL":
			p = "CTRL"
		case "OPTION":
			p = "ALT"
		case "ESCAPE":
			p = "ESC"
		}
		parts = append(parts, p)
	}
	return parts
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key and checks for matches.
// Auto-repeat key downs do not trigger again.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	repeat := isDown && m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !repeat {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(pressed string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match, involved := true, false
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == pressed {
				involved = true
			}
		}

		if match && involved {
			log.Infof("Hotkey: Triggered %s", hk.original)
			go hk.callback()
		}
	}
}

// Start initiates the platform-specific global hooks.
// This is implemented in platform-specific files.
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the platform hooks and ends their goroutines. It is safe to
// call without Start and more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
		log.Debug("Hotkey: Stopped")
	}
}

func (m *Manager) setStop(fn func()) {
	m.mu.Lock()
	m.stop = fn
	m.mu.Unlock()
}
