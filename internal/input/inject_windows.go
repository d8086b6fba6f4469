//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"pedalkeys/internal/errs"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	INPUT_KEYBOARD        = 1
	KEYEVENTF_EXTENDEDKEY = 0x0001
	KEYEVENTF_KEYUP       = 0x0002
)

type KEYBDINPUT struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type INPUT struct {
	Type uint32
	Ki   KEYBDINPUT
	_    [8]byte // Padding to the size of the MOUSEINPUT union member
}

// keys that live on the extended part of the keyboard
var extendedKeys = map[Key]bool{
	"left": true, "up": true, "right": true, "down": true,
	"insert": true, "delete": true, "home": true, "end": true,
	"pageup": true, "pagedown": true,
}

// SendInputInjector injects key events with user32 SendInput
type SendInputInjector struct{}

// NewInjector returns the Windows injector
func NewInjector() (Injector, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("SendInput: %w", err)
	}
	return &SendInputInjector{}, nil
}

func (s *SendInputInjector) Press(k Key) error   { return s.send(k, true) }
func (s *SendInputInjector) Release(k Key) error { return s.send(k, false) }
func (s *SendInputInjector) Close() error        { return nil }

func (s *SendInputInjector) send(k Key, pressed bool) error {
	vk, ok := k.VirtualKeyCode()
	if !ok {
		return fmt.Errorf("%w: no virtual key for %q", errs.ErrInputLayer, k)
	}

	var input INPUT
	input.Type = INPUT_KEYBOARD
	input.Ki.WVk = vk
	if extendedKeys[k] {
		input.Ki.DwFlags |= KEYEVENTF_EXTENDEDKEY
	}
	if !pressed {
		input.Ki.DwFlags |= KEYEVENTF_KEYUP
	}

	n, _, err := procSendInput.Call(
		1,
		uintptr(unsafe.Pointer(&input)),
		unsafe.Sizeof(input),
	)
	if n != 1 {
		return fmt.Errorf("%w: SendInput: %v", errs.ErrInputLayer, err)
	}
	return nil
}
