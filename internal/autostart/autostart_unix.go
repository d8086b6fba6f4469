//go:build !windows

package autostart

import (
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// Enable writes the login item for the current platform
func Enable(e Entry) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	path, err := entryPath(runtime.GOOS, home)
	if err != nil {
		return err
	}
	content, err := render(runtime.GOOS, e)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	log.Infof("Autostart: Writing %s", path)
	return os.WriteFile(path, []byte(content), 0644)
}

// Disable removes the login item. A missing item is not an error.
func Disable() error {
	path, err := currentPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled reports whether the login item exists
func IsEnabled() bool {
	path, err := currentPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func currentPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return entryPath(runtime.GOOS, home)
}
