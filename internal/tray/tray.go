// Package tray shows live cadence in the system tray using getlantern/systray.
package tray

import (
	"fmt"
	"strings"
	"sync"

	"pedalkeys/internal/overlay"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Disabled bool
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu. It is an overlay.Sink.
type Tray struct {
	items   []*MenuItem
	onReady func()
	onExit  func()
	readyCh chan struct{}
	quitCh  chan struct{}

	statusID int
	keysID   int
	quit     *MenuItem

	mu    sync.Mutex
	ready bool
	last  string
}

// New creates a tray whose Quit item calls onQuit
func New(tooltip string, onQuit func()) *Tray {
	t := &Tray{
		items:   make([]*MenuItem, 0),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}

	t.onReady = func() {
		systray.SetTitle("pedalkeys")
		systray.SetTooltip(tooltip)
		systray.SetIcon(getIcon())
		close(t.readyCh)
	}

	t.onExit = func() {
		close(t.quitCh)
	}

	t.statusID = t.addInfo("Cadence: --")
	t.keysID = t.addInfo("Keys: {}")
	t.AddSeparator()
	t.quit = &MenuItem{ID: -1, Title: "Quit", Callback: onQuit}
	return t
}

// menu is the items in display order, Quit last
func (t *Tray) menu() []*MenuItem {
	return append(append([]*MenuItem(nil), t.items...), nil, t.quit)
}

func (t *Tray) addInfo(title string) int {
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Disabled: true})
	return id
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	id := len(t.items)
	menuItem := &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	}
	t.items = append(t.items, menuItem)
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// Run starts the tray event loop. It blocks and must be called from the
// main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.onReady()
	<-t.readyCh

	for _, menuItem := range t.menu() {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}

		item := systray.AddMenuItem(menuItem.Title, "")
		menuItem.item = item
		if menuItem.Disabled {
			item.Disable()
		}

		if menuItem.Callback != nil {
			go func(mi *MenuItem) {
				for {
					select {
					case <-mi.item.ClickedCh:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem)
		}
	}

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) Name() string { return "tray" }

// Publish shows cadence in the title and the full status line in the
// tooltip. Updates before the tray is ready are skipped.
func (t *Tray) Publish(s overlay.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return nil
	}

	line := overlay.FormatLine(s)
	if line == t.last {
		return nil
	}
	t.last = line

	systray.SetTitle(Title(s))
	systray.SetTooltip(line)
	t.setItemTitle(t.statusID, fmt.Sprintf("Cadence: %.0f rpm (%s)", s.Cadence, s.Source))
	t.setItemTitle(t.keysID, "Keys: {"+strings.Join(s.Keys, ", ")+"}")
	return nil
}

func (t *Tray) setItemTitle(id int, title string) {
	if id >= 0 && id < len(t.items) && t.items[id] != nil && t.items[id].item != nil {
		t.items[id].item.SetTitle(title)
	}
}

// Title is the short tray title for s
func Title(s overlay.Status) string {
	if s.Paused {
		return "paused"
	}
	if s.Source == "None" || s.Source == "" {
		return "-- rpm"
	}
	return fmt.Sprintf("%.0f rpm", s.Cadence)
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // 1024 pixels + 40 header + 32 mask
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// pixels and mask stay 0 (transparent)
	return icon
}
