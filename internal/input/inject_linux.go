//go:build linux

package input

import (
	"fmt"

	"pedalkeys/internal/errs"

	"github.com/holoplot/go-evdev"
)

var evdevKeyCodes = map[Key]evdev.EvCode{
	"a": evdev.KEY_A, "b": evdev.KEY_B, "c": evdev.KEY_C, "d": evdev.KEY_D,
	"e": evdev.KEY_E, "f": evdev.KEY_F, "g": evdev.KEY_G, "h": evdev.KEY_H,
	"i": evdev.KEY_I, "j": evdev.KEY_J, "k": evdev.KEY_K, "l": evdev.KEY_L,
	"m": evdev.KEY_M, "n": evdev.KEY_N, "o": evdev.KEY_O, "p": evdev.KEY_P,
	"q": evdev.KEY_Q, "r": evdev.KEY_R, "s": evdev.KEY_S, "t": evdev.KEY_T,
	"u": evdev.KEY_U, "v": evdev.KEY_V, "w": evdev.KEY_W, "x": evdev.KEY_X,
	"y": evdev.KEY_Y, "z": evdev.KEY_Z,

	"0": evdev.KEY_0, "1": evdev.KEY_1, "2": evdev.KEY_2, "3": evdev.KEY_3,
	"4": evdev.KEY_4, "5": evdev.KEY_5, "6": evdev.KEY_6, "7": evdev.KEY_7,
	"8": evdev.KEY_8, "9": evdev.KEY_9,

	"f1": evdev.KEY_F1, "f2": evdev.KEY_F2, "f3": evdev.KEY_F3, "f4": evdev.KEY_F4,
	"f5": evdev.KEY_F5, "f6": evdev.KEY_F6, "f7": evdev.KEY_F7, "f8": evdev.KEY_F8,
	"f9": evdev.KEY_F9, "f10": evdev.KEY_F10, "f11": evdev.KEY_F11, "f12": evdev.KEY_F12,

	"backspace": evdev.KEY_BACKSPACE,
	"tab":       evdev.KEY_TAB,
	"enter":     evdev.KEY_ENTER,
	"shift":     evdev.KEY_LEFTSHIFT,
	"ctrl":      evdev.KEY_LEFTCTRL,
	"alt":       evdev.KEY_LEFTALT,
	"escape":    evdev.KEY_ESC,
	"space":     evdev.KEY_SPACE,
	"pageup":    evdev.KEY_PAGEUP,
	"pagedown":  evdev.KEY_PAGEDOWN,
	"end":       evdev.KEY_END,
	"home":      evdev.KEY_HOME,
	"left":      evdev.KEY_LEFT,
	"up":        evdev.KEY_UP,
	"right":     evdev.KEY_RIGHT,
	"down":      evdev.KEY_DOWN,
	"insert":    evdev.KEY_INSERT,
	"delete":    evdev.KEY_DELETE,
}

// UinputInjector writes key events to a virtual keyboard created through
// /dev/uinput. The user needs write access to /dev/uinput.
type UinputInjector struct {
	dev *evdev.InputDevice
}

// NewInjector creates the virtual keyboard
func NewInjector() (Injector, error) {
	codes := make([]evdev.EvCode, 0, len(evdevKeyCodes))
	for _, c := range evdevKeyCodes {
		codes = append(codes, c)
	}

	dev, err := evdev.CreateDevice(
		"pedalkeys virtual keyboard",
		evdev.InputID{BusType: 0x06, Vendor: 0x1209, Product: 0x5045, Version: 1},
		map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: codes,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create uinput device: %w", err)
	}
	return &UinputInjector{dev: dev}, nil
}

func (u *UinputInjector) Press(k Key) error   { return u.write(k, 1) }
func (u *UinputInjector) Release(k Key) error { return u.write(k, 0) }

// Close destroys the virtual keyboard
func (u *UinputInjector) Close() error {
	return u.dev.Close()
}

func (u *UinputInjector) write(k Key, value int32) error {
	code, ok := evdevKeyCodes[k]
	if !ok {
		return fmt.Errorf("%w: no evdev code for %q", errs.ErrInputLayer, k)
	}

	if err := u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInputLayer, err)
	}
	if err := u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0}); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInputLayer, err)
	}
	return nil
}
