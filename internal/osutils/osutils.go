// Package osutils holds the platform chores around the overlay server and
// key injection.
package osutils

import "fmt"

// FirewallRuleName is the inbound rule opened for the browser overlay
const FirewallRuleName = "pedalkeys overlay"

// firewallScript replaces any existing rule with one allowing TCP port
func firewallScript(port int) string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Private",
		FirewallRuleName, FirewallRuleName, port,
	)
}
