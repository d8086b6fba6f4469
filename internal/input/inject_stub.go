//go:build !windows && !darwin && !linux

package input

import (
	"fmt"
	"runtime"

	"pedalkeys/internal/errs"
)

// NewInjector reports that this platform has no key injector
func NewInjector() (Injector, error) {
	return nil, fmt.Errorf("key injection on %s: %w", runtime.GOOS, errs.ErrUnsupportedPlatform)
}
