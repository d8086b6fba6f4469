//go:build !windows

package osutils

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// IsElevated reports whether the process runs as root
func IsElevated() bool {
	return os.Geteuid() == 0
}

// EnsureFirewallRule only manages rules on Windows
func EnsureFirewallRule(port int) error {
	log.Debugf("Firewall: Automatic rule management is only supported on Windows (port %d)", port)
	return nil
}
