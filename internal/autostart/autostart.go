// Package autostart registers pedalkeys to start at login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform
const Label = "com.pedalkeys.agent"

// Entry is the command launched at login
type Entry struct {
	ExecutablePath string
	Args           []string
}

// DefaultEntry launches the running executable with "run"
func DefaultEntry(configPath string) (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	e := Entry{ExecutablePath: execPath, Args: []string{"run"}}
	if configPath != "" {
		e.Args = append(e.Args, "--config", configPath)
	}
	return e, nil
}

// CommandLine joins the entry into one shell-style line, quoting parts
// with spaces
func (e Entry) CommandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.ExecutablePath}, e.Args...) {
		if strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=pedalkeys
Comment=Cadence and controller to keyboard
Exec={{.CommandLine}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// entryPath returns where the login item lives for goos under home
func entryPath(goos, home string) (string, error) {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "autostart", "pedalkeys.desktop"), nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

// render produces the login item file for goos
func render(goos string, e Entry) (string, error) {
	var src string
	switch goos {
	case "darwin":
		src = macLaunchAgentPlist
	default:
		src = xdgDesktopEntry
	}

	tmpl, err := template.New("autostart").Parse(src)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	data := struct {
		Entry
		Label       string
		CommandLine string
	}{e, Label, e.CommandLine()}
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
