package osutils

import (
	"runtime"
	"strings"
	"testing"
)

func TestFirewallScript(t *testing.T) {
	s := firewallScript(49556)
	if !strings.Contains(s, "-LocalPort 49556") {
		t.Errorf("Expected port in script, got %s", s)
	}
	if strings.Count(s, "'"+FirewallRuleName+"'") != 2 {
		t.Errorf("Expected rule name in remove and create, got %s", s)
	}
}

func TestEnsureFirewallRuleNoopOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("manages the real firewall")
	}
	if err := EnsureFirewallRule(49556); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
