//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// IsElevated checks if the current process has administrative privileges.
// SendInput cannot reach windows of an elevated game from a normal process.
func IsElevated() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// EnsureFirewallRule opens the browser overlay port for LAN devices,
// requesting UAC elevation when needed
func EnsureFirewallRule(port int) error {
	entry := log.WithFields(log.Fields{"rule": FirewallRuleName, "port": port})

	output, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+FirewallRuleName).CombinedOutput()
	out := string(output)
	if err == nil && strings.Contains(out, FirewallRuleName) {
		if strings.Contains(out, fmt.Sprintf("%d", port)) && strings.Contains(out, "Allow") {
			entry.Debug("Firewall: Rule already matches")
			return nil
		}
		entry.Info("Firewall: Rule exists with another port, updating")
	} else {
		entry.Info("Firewall: Rule not found, creating")
	}

	script := firewallScript(port)
	if !IsElevated() {
		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", script))

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, windows.SW_HIDE); err != nil {
			return fmt.Errorf("launch elevated powershell: %w", err)
		}
		entry.Info("Firewall: UAC prompt requested")
		return nil
	}

	if output, err := exec.Command("powershell", "-NoProfile", "-Command", script).CombinedOutput(); err != nil {
		return fmt.Errorf("create firewall rule: %w (output: %s)", err, string(output))
	}
	entry.Info("Firewall: Rule applied")
	return nil
}
