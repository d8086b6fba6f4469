// Package errs holds the sentinel errors shared across pedalkeys packages.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
package errs

import "errors"

var (
	// ErrTransientDevice is returned when a sensor link drops or delivers a
	// payload that cannot be decoded. It is recovered locally by reconnecting.
	ErrTransientDevice = errors.New("transient device error")

	// ErrConfiguration is returned for an unusable configuration (missing
	// address, bad threshold ordering, unknown key name). Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrInputLayer is returned when the OS refuses a synthetic key event
	ErrInputLayer = errors.New("input layer rejected event")

	// ErrUnsupportedPlatform is returned when running on an OS without a key injector
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrAdapterUnavailable is returned when the Bluetooth adapter cannot be enabled
	ErrAdapterUnavailable = errors.New("bluetooth adapter unavailable")
)
