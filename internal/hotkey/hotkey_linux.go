//go:build linux

package hotkey

import (
	"fmt"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	log "github.com/sirupsen/logrus"
)

// virtualKeyboardName is the uinput device pedalkeys itself creates
const virtualKeyboardName = "pedalkeys"

var linuxKeyNames = map[evdev.EvCode]string{
	evdev.KEY_LEFTCTRL: "CTRL", evdev.KEY_RIGHTCTRL: "CTRL",
	evdev.KEY_LEFTALT: "ALT", evdev.KEY_RIGHTALT: "ALT",
	evdev.KEY_LEFTSHIFT: "SHIFT", evdev.KEY_RIGHTSHIFT: "SHIFT",
	evdev.KEY_LEFTMETA: "CMD", evdev.KEY_RIGHTMETA: "CMD",
	evdev.KEY_SPACE: "SPACE", evdev.KEY_ENTER: "ENTER", evdev.KEY_ESC: "ESC",
	evdev.KEY_PAUSE: "PAUSE", evdev.KEY_SCROLLLOCK: "SCROLLLOCK",

	evdev.KEY_A: "A", evdev.KEY_B: "B", evdev.KEY_C: "C", evdev.KEY_D: "D",
	evdev.KEY_E: "E", evdev.KEY_F: "F", evdev.KEY_G: "G", evdev.KEY_H: "H",
	evdev.KEY_I: "I", evdev.KEY_J: "J", evdev.KEY_K: "K", evdev.KEY_L: "L",
	evdev.KEY_M: "M", evdev.KEY_N: "N", evdev.KEY_O: "O", evdev.KEY_P: "P",
	evdev.KEY_Q: "Q", evdev.KEY_R: "R", evdev.KEY_S: "S", evdev.KEY_T: "T",
	evdev.KEY_U: "U", evdev.KEY_V: "V", evdev.KEY_W: "W", evdev.KEY_X: "X",
	evdev.KEY_Y: "Y", evdev.KEY_Z: "Z",

	evdev.KEY_0: "0", evdev.KEY_1: "1", evdev.KEY_2: "2", evdev.KEY_3: "3",
	evdev.KEY_4: "4", evdev.KEY_5: "5", evdev.KEY_6: "6", evdev.KEY_7: "7",
	evdev.KEY_8: "8", evdev.KEY_9: "9",

	evdev.KEY_F1: "F1", evdev.KEY_F2: "F2", evdev.KEY_F3: "F3", evdev.KEY_F4: "F4",
	evdev.KEY_F5: "F5", evdev.KEY_F6: "F6", evdev.KEY_F7: "F7", evdev.KEY_F8: "F8",
	evdev.KEY_F9: "F9", evdev.KEY_F10: "F10", evdev.KEY_F11: "F11", evdev.KEY_F12: "F12",
}

// startPlatform reads every physical keyboard under /dev/input. The user
// needs read access to the event devices (usually the "input" group).
func (m *Manager) startPlatform() error {
	kbds, err := findKeyboards()
	if err != nil {
		return err
	}
	if len(kbds) == 0 {
		return fmt.Errorf("no readable keyboards under /dev/input")
	}

	for _, dev := range kbds {
		go m.monitor(dev)
	}
	// closing a device makes its blocked ReadOne fail, ending the monitor
	m.setStop(func() {
		for _, dev := range kbds {
			dev.Close()
		}
	})
	log.Infof("Hotkey: Watching %d keyboard(s)", len(kbds))
	return nil
}

// findKeyboards returns devices with both KEY_A and KEY_ENTER, skipping
// our own virtual keyboard
func findKeyboards() ([]*evdev.InputDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var kbds []*evdev.InputDevice
	for _, p := range paths {
		if strings.HasPrefix(p.Name, virtualKeyboardName) {
			continue
		}
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}

		hasA, hasEnter := false, false
		for _, c := range dev.CapableEvents(evdev.EV_KEY) {
			switch c {
			case evdev.KEY_A:
				hasA = true
			case evdev.KEY_ENTER:
				hasEnter = true
			}
		}

		if hasA && hasEnter {
			kbds = append(kbds, dev)
		} else {
			dev.Close()
		}
	}
	return kbds, nil
}

func (m *Manager) monitor(dev *evdev.InputDevice) {
	defer dev.Close()
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			log.Debugf("Hotkey: Keyboard read stopped: %v", err)
			return
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		name, ok := linuxKeyNames[ev.Code]
		if !ok {
			continue
		}
		// value 2 is auto-repeat
		switch ev.Value {
		case 1:
			m.UpdateState(name, true)
		case 0:
			m.UpdateState(name, false)
		}
	}
}
