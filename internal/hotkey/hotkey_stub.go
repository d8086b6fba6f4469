//go:build !windows && !darwin && !linux

package hotkey

import "pedalkeys/internal/errs"

func (m *Manager) startPlatform() error {
	return errs.ErrUnsupportedPlatform
}
