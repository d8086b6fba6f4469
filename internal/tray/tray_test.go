package tray

import (
	"testing"

	"pedalkeys/internal/overlay"
)

func TestTitle(t *testing.T) {
	if got := Title(overlay.Status{Source: "None"}); got != "-- rpm" {
		t.Errorf("Expected -- rpm, got %s", got)
	}
	if got := Title(overlay.Status{Cadence: 88.6, Source: "Trainer", Paused: true}); got != "paused" {
		t.Errorf("Expected paused, got %s", got)
	}
	if got := Title(overlay.Status{Cadence: 88.6, Source: "Trainer"}); got != "89 rpm" {
		t.Errorf("Expected 89 rpm, got %s", got)
	}
}

func TestMenuLayout(t *testing.T) {
	quit := false
	tr := New("pedalkeys", func() { quit = true })
	tr.AddMenuItem("Pause / Resume", func() {})

	menu := tr.menu()
	if len(menu) != 6 {
		t.Fatalf("Expected 6 menu entries, got %d", len(menu))
	}
	if menu[2] != nil || menu[4] != nil {
		t.Error("Expected separators around Pause / Resume")
	}
	if menu[3].Title != "Pause / Resume" {
		t.Errorf("Expected Pause / Resume before Quit, got %s", menu[3].Title)
	}
	last := menu[5]
	if last.Title != "Quit" || last.Callback == nil {
		t.Fatalf("Expected Quit item, got %+v", last)
	}
	last.Callback()
	if !quit {
		t.Error("Expected Quit callback to run onQuit")
	}
	if !tr.items[tr.statusID].Disabled || !tr.items[tr.keysID].Disabled {
		t.Error("Expected status entries to be disabled")
	}
}

func TestPublishBeforeReady(t *testing.T) {
	tr := New("pedalkeys", func() {})
	if err := tr.Publish(overlay.Status{Cadence: 90, Source: "Trainer"}); err != nil {
		t.Errorf("Expected nil before ready, got %v", err)
	}
	if tr.last != "" {
		t.Error("Expected no update before ready")
	}
}

func TestIcon(t *testing.T) {
	icon := getIcon()
	if len(icon) != 1118 || icon[2] != 0x01 {
		t.Errorf("Unexpected icon header % X", icon[:6])
	}
}
