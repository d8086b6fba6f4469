package autostart

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandLineQuotesSpaces(t *testing.T) {
	e := Entry{ExecutablePath: `C:\Program Files\pedalkeys.exe`, Args: []string{"run", "--config", "cfg.json"}}
	want := `"C:\Program Files\pedalkeys.exe" run --config cfg.json`
	if got := e.CommandLine(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestRenderPlist(t *testing.T) {
	out, err := render("darwin", Entry{ExecutablePath: "/Applications/pedalkeys", Args: []string{"run"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<string>" + Label + "</string>",
		"<string>/Applications/pedalkeys</string>",
		"<string>run</string>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected plist to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderDesktopEntry(t *testing.T) {
	out, err := render("linux", Entry{ExecutablePath: "/usr/bin/pedalkeys", Args: []string{"run"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Exec=/usr/bin/pedalkeys run\n") {
		t.Errorf("Expected Exec line, got:\n%s", out)
	}
}

func TestEntryPath(t *testing.T) {
	got, err := entryPath("darwin", "/Users/rider")
	if err != nil {
		t.Fatalf("entryPath: %v", err)
	}
	want := filepath.Join("/Users/rider", "Library", "LaunchAgents", Label+".plist")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, _ = entryPath("linux", "/home/rider")
	if want := filepath.Join("/tmp/xdg", "autostart", "pedalkeys.desktop"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, err := entryPath("plan9", "/"); err == nil {
		t.Error("Expected error for unsupported platform")
	}
}
