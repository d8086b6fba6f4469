package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pedalkeys/internal/controller"
	"pedalkeys/internal/errs"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Trainer.Address = "C7:11:22:33:44:55"
	return cfg
}

func TestDefaultConfigNeedsTrainer(t *testing.T) {
	err := DefaultConfig().Validate()
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration without a trainer address, got %v", err)
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Expected defaults plus trainer address to be valid, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad profile":        func(c *Config) { c.Trainer.Profile = "ant" },
		"external no addr":   func(c *Config) { c.External.Enabled = true },
		"threshold order":    func(c *Config) { c.Cadence.Upper = 120 },
		"unknown key":        func(c *Config) { c.Cadence.BoostKey = "turbo" },
		"unknown button":     func(c *Config) { c.Controllers.Left["X"] = "a" },
		"unknown mapped key": func(c *Config) { c.Controllers.Right["Y"] = "meta" },
		"too many pads":      func(c *Config) { c.Controllers.Max = 3 },
		"deadzone":           func(c *Config) { c.Steering.Deadzone = 1.5 },
		"backoff order":      func(c *Config) { c.Reconnect.MaxSeconds = 0.5 },
		"retry limit":        func(c *Config) { c.Reconnect.RetryLimit = 0 },
	}

	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, errs.ErrConfiguration) {
			t.Errorf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Controllers.Left["Y"] = "W"

	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if ec.Left[controller.ButtonY] != "w" {
		t.Errorf("Expected left Y mapped to w, got %q", ec.Left[controller.ButtonY])
	}
	if ec.Right[controller.ButtonPower] != "enter" {
		t.Errorf("Expected right On/Off mapped to enter, got %q", ec.Right[controller.ButtonPower])
	}
	if ec.Thresholds.Boost != 100 || ec.Thresholds.Upper != 65 || ec.Thresholds.Lower != 30 {
		t.Errorf("Unexpected thresholds %+v", ec.Thresholds)
	}
	if ec.ForwardKey != "a" || ec.BoostKey != "up" || ec.BrakeKey != "b" {
		t.Errorf("Unexpected cadence keys %q %q %q", ec.ForwardKey, ec.BoostKey, ec.BrakeKey)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StaleAfter() != 3*time.Second {
		t.Errorf("Expected 3s stale window, got %v", cfg.StaleAfter())
	}
	if cfg.RefreshInterval() != 100*time.Millisecond {
		t.Errorf("Expected 100ms refresh, got %v", cfg.RefreshInterval())
	}
	if Seconds(0.25) != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", Seconds(0.25))
	}
}

func TestDefaultPauseHotkey(t *testing.T) {
	if got := DefaultConfig().Hotkey.Pause; got != "Ctrl+Alt+P" {
		t.Errorf("Expected Ctrl+Alt+P, got %s", got)
	}
}

func TestManagerLoadMissingFileKeepsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Cadence.Boost != 100 {
		t.Errorf("Expected default boost 100, got %v", m.Get().Cadence.Boost)
	}
}

func TestManagerLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"trainer": {"address": "AA:BB", "profile": "cps"}, "cadence": {"boost_rpm": 110}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m, _ := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Trainer.Address != "AA:BB" || cfg.Trainer.Profile != ProfileCPS {
		t.Errorf("Unexpected trainer %+v", cfg.Trainer)
	}
	if cfg.Cadence.Boost != 110 || cfg.Cadence.Upper != 65 {
		t.Errorf("Expected boost 110 with default upper 65, got %+v", cfg.Cadence)
	}
	if cfg.Overlay.UDPPort != 49555 {
		t.Errorf("Expected default overlay port, got %d", cfg.Overlay.UDPPort)
	}
}

func TestManagerLoadReplacesButtonTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"controllers": {"left": {"Y": "space"}}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m, _ := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if len(cfg.Controllers.Left) != 1 || cfg.Controllers.Left["Y"] != "space" {
		t.Errorf("Expected left table {Y: space}, got %v", cfg.Controllers.Left)
	}
	if want := len(DefaultConfig().Controllers.Right); len(cfg.Controllers.Right) != want {
		t.Errorf("Expected default right table with %d entries, got %v", want, cfg.Controllers.Right)
	}
}

func TestManagerLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{not json"), 0644)

	m, _ := NewManager(path)
	if err := m.Load(); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestManagerSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	m, _ := NewManager(path)
	cfg := validConfig()
	m.Set(cfg)
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, _ := NewManager(path)
	if err := again.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Get().Trainer.Address != cfg.Trainer.Address {
		t.Errorf("Expected saved trainer address, got %q", again.Get().Trainer.Address)
	}
	if again.Path() != path {
		t.Errorf("Expected path %s, got %s", path, again.Path())
	}
}
