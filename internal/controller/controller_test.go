package controller

import (
	"testing"
	"time"

	"pedalkeys/internal/protocol"
)

func TestFromKeypad(t *testing.T) {
	now := time.Now()
	s := FromKeypad("play-1", protocol.KeypadStatus{Y: true, Shift: true, Analog: -150}, now)

	if s.Side != SideLeft {
		t.Errorf("Expected left side, got %s", s.Side)
	}
	if !s.Buttons.Has(ButtonY) || !s.Buttons.Has(ButtonSide) {
		t.Errorf("Expected Y and Side held, got %v", s.Buttons.Buttons())
	}
	if !s.Buttons.Has(ButtonPaddle) {
		t.Error("Expected paddle held at -150")
	}
	if s.Buttons.Has(ButtonA) {
		t.Error("Expected A released")
	}
	if s.TiltX != -1 {
		t.Errorf("Expected tilt clamped to -1, got %v", s.TiltX)
	}

	s = FromKeypad("play-2", protocol.KeypadStatus{RightPad: true, Analog: 40}, now)
	if s.Side != SideRight {
		t.Errorf("Expected right side, got %s", s.Side)
	}
	if s.Buttons != 0 {
		t.Errorf("Expected no buttons, got %v", s.Buttons.Buttons())
	}
	if s.TiltX != 0.4 {
		t.Errorf("Expected tilt 0.4, got %v", s.TiltX)
	}
}

func TestParseButton(t *testing.T) {
	b, err := ParseButton("on/off")
	if err != nil || b != ButtonPower {
		t.Errorf("Expected On/Off, got %q (%v)", b, err)
	}
	if _, err := ParseButton("X"); err == nil {
		t.Error("Expected error for unknown button")
	}
}

func TestButtonSetValueSemantics(t *testing.T) {
	a := NewButtonSet(ButtonA, ButtonB)
	b := NewButtonSet(ButtonB, ButtonA)
	if a != b {
		t.Error("Expected equal sets regardless of insertion order")
	}
	if got := a.Buttons(); len(got) != 2 || got[0] != ButtonA || got[1] != ButtonB {
		t.Errorf("Expected [A B], got %v", got)
	}
	if a.Has(Button("nope")) {
		t.Error("Expected unknown button not to be held")
	}
}

func TestTrackerOverwritesWholesale(t *testing.T) {
	tr := NewTracker()
	tr.Update(Snapshot{ControllerID: "c1", Side: SideLeft, Buttons: NewButtonSet(ButtonY, ButtonZ)})
	tr.Update(Snapshot{ControllerID: "c1", Side: SideLeft, Buttons: NewButtonSet(ButtonA)})

	snaps := tr.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("Expected one left snapshot, got %+v", snaps)
	}
	if snaps[0].Buttons != NewButtonSet(ButtonA) {
		t.Errorf("Expected only A held, got %v", snaps[0].Buttons.Buttons())
	}
}

func TestTrackerDisconnect(t *testing.T) {
	tr := NewTracker()
	tr.Update(Snapshot{ControllerID: "c1", Side: SideLeft, Buttons: NewButtonSet(ButtonY)})
	tr.Update(Snapshot{ControllerID: "c2", Side: SideRight, Buttons: NewButtonSet(ButtonB)})

	if !tr.Disconnect("c1") {
		t.Error("Expected disconnect to clear c1")
	}
	if tr.Disconnect("c1") {
		t.Error("Expected second disconnect to be a no-op")
	}

	snaps := tr.Snapshots()
	if len(snaps) != 1 || snaps[0].ControllerID != "c2" {
		t.Errorf("Expected only c2 snapshot, got %+v", snaps)
	}
}
