// Package config provides configuration management for pedalkeys.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"pedalkeys/internal/controller"
	"pedalkeys/internal/decision"
	"pedalkeys/internal/errs"
	"pedalkeys/internal/input"
	"pedalkeys/internal/protocol"

	log "github.com/sirupsen/logrus"
)

// Trainer profiles
const (
	ProfileFTMS = "ftms" // Fitness Machine Service, Indoor Bike Data
	ProfileCPS  = "cps"  // Cycling Power Service with crank data
)

// Config represents the application configuration
type Config struct {
	// Trainer is the smart trainer providing cadence and power
	Trainer TrainerConfig `json:"trainer"`

	// External is the optional dedicated cadence sensor (CSC)
	External ExternalConfig `json:"external_cadence"`

	// Controllers configures Zwift Play discovery and button mapping
	Controllers ControllersConfig `json:"controllers"`

	// Cadence holds the band thresholds and the keys they drive
	Cadence CadenceConfig `json:"cadence"`

	// Steering maps controller tilt to steer keys
	Steering SteeringConfig `json:"steering"`

	// Reconnect controls the backoff used when a device drops
	Reconnect ReconnectConfig `json:"reconnect"`

	// Overlay configures the read-only status outputs
	Overlay OverlayConfig `json:"overlay"`

	// Hotkey toggles pause, e.g. "Ctrl+Alt+P". Empty disables it.
	Hotkey HotkeyConfig `json:"hotkey"`
}

// HotkeyConfig holds global key combinations
type HotkeyConfig struct {
	Pause string `json:"pause"`
}

// TrainerConfig describes the smart trainer
type TrainerConfig struct {
	// Address is the BLE address (MAC on Linux/Windows, UUID on macOS)
	Address string `json:"address"`

	// Profile selects the GATT service to read: "ftms" (default) or "cps"
	Profile string `json:"profile"`

	// ZeroCadenceWatts forces trainer cadence to 0 at or below this power
	ZeroCadenceWatts int `json:"zero_cadence_watts"`
}

// ExternalConfig describes the external cadence sensor
type ExternalConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`

	// StaleSeconds is how long a reading stays trusted (default: 3)
	StaleSeconds float64 `json:"stale_seconds"`
}

// ControllersConfig configures the Zwift Play controllers
type ControllersConfig struct {
	Enabled bool `json:"enabled"`

	// NameFilter selects advertised devices whose name contains it
	NameFilter string `json:"name_filter"`

	// Addresses pins specific controllers instead of scanning by name
	Addresses []string `json:"addresses,omitempty"`

	// Max is the number of controllers to connect (1 or 2)
	Max int `json:"max"`

	// RescanSeconds is the delay between discovery scans
	RescanSeconds float64 `json:"rescan_seconds"`

	// ScanSeconds is how long one discovery scan listens
	ScanSeconds float64 `json:"scan_seconds"`

	// Left and Right map button names ("Y", "Z", "A", "B", "Side", "On/Off",
	// "Paddle") to key names
	Left  map[string]string `json:"left"`
	Right map[string]string `json:"right"`
}

// CadenceConfig holds the cadence bands. Boost > Upper > Lower.
type CadenceConfig struct {
	Boost      float64 `json:"boost_rpm"`
	Upper      float64 `json:"upper_rpm"`
	Lower      float64 `json:"lower_rpm"`
	ForwardKey string  `json:"forward_key"`
	BoostKey   string  `json:"boost_key"`
	BrakeKey   string  `json:"brake_key"`
}

// SteeringConfig maps tilt past the deadzone to a steer key
type SteeringConfig struct {
	Enabled  bool    `json:"enabled"`
	Deadzone float64 `json:"deadzone"`
	LeftKey  string  `json:"left_key"`
	RightKey string  `json:"right_key"`
}

// ReconnectConfig is the exponential backoff between connection attempts
type ReconnectConfig struct {
	InitialSeconds float64 `json:"initial_seconds"`
	MaxSeconds     float64 `json:"max_seconds"`

	// RetryLimit is the number of consecutive failures before a device is
	// reported as degraded. Retries continue afterwards.
	RetryLimit int `json:"retry_limit"`
}

// OverlayConfig configures the status outputs
type OverlayConfig struct {
	// UDPEnabled sends {"cadence","source"} datagrams to the overlay window
	UDPEnabled bool   `json:"udp_enabled"`
	UDPHost    string `json:"udp_host"`
	UDPPort    int    `json:"udp_port"`

	// WebPort serves the browser overlay and /ws status feed (0 disables)
	WebPort int `json:"web_port"`

	// Tray shows cadence in the system tray
	Tray bool `json:"tray"`

	// RefreshMillis is the overlay refresh period (default: 100, i.e. 10 Hz)
	RefreshMillis int `json:"refresh_millis"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	engine := decision.DefaultConfig()

	return &Config{
		Trainer: TrainerConfig{
			Profile:          ProfileFTMS,
			ZeroCadenceWatts: 5,
		},
		External: ExternalConfig{
			StaleSeconds: 3,
		},
		Controllers: ControllersConfig{
			Enabled:       true,
			NameFilter:    "Zwift",
			Max:           2,
			RescanSeconds: 5,
			ScanSeconds:   6,
			Left:          mappingNames(engine.Left),
			Right:         mappingNames(engine.Right),
		},
		Cadence: CadenceConfig{
			Boost:      engine.Thresholds.Boost,
			Upper:      engine.Thresholds.Upper,
			Lower:      engine.Thresholds.Lower,
			ForwardKey: string(engine.ForwardKey),
			BoostKey:   string(engine.BoostKey),
			BrakeKey:   string(engine.BrakeKey),
		},
		Steering: SteeringConfig{
			Enabled:  engine.SteeringEnabled,
			Deadzone: engine.Deadzone,
			LeftKey:  string(engine.SteerLeftKey),
			RightKey: string(engine.SteerRightKey),
		},
		Reconnect: ReconnectConfig{
			InitialSeconds: 1,
			MaxSeconds:     5,
			RetryLimit:     10,
		},
		Overlay: OverlayConfig{
			UDPEnabled:    true,
			UDPHost:       "127.0.0.1",
			UDPPort:       protocol.DefaultOverlayPort,
			WebPort:       49556,
			RefreshMillis: 100,
		},
		Hotkey: HotkeyConfig{
			Pause: "Ctrl+Alt+P",
		},
	}
}

func mappingNames(m decision.Mapping) map[string]string {
	out := make(map[string]string, len(m))
	for b, k := range m {
		out[string(b)] = string(k)
	}
	return out
}

// Validate reports the first problem that makes the configuration unusable.
// Every error wraps errs.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Trainer.Address == "" {
		return fmt.Errorf("%w: trainer.address is required", errs.ErrConfiguration)
	}
	switch c.Trainer.Profile {
	case ProfileFTMS, ProfileCPS:
	default:
		return fmt.Errorf("%w: trainer.profile must be %q or %q, got %q",
			errs.ErrConfiguration, ProfileFTMS, ProfileCPS, c.Trainer.Profile)
	}
	if c.External.Enabled && c.External.Address == "" {
		return fmt.Errorf("%w: external_cadence.address is required when enabled", errs.ErrConfiguration)
	}
	if c.External.StaleSeconds <= 0 {
		return fmt.Errorf("%w: external_cadence.stale_seconds must be positive", errs.ErrConfiguration)
	}
	if c.Controllers.Enabled {
		if c.Controllers.Max < 1 || c.Controllers.Max > 2 {
			return fmt.Errorf("%w: controllers.max must be 1 or 2, got %d", errs.ErrConfiguration, c.Controllers.Max)
		}
		if c.Controllers.RescanSeconds <= 0 || c.Controllers.ScanSeconds <= 0 {
			return fmt.Errorf("%w: controllers scan intervals must be positive", errs.ErrConfiguration)
		}
	}
	if c.Reconnect.InitialSeconds <= 0 || c.Reconnect.MaxSeconds < c.Reconnect.InitialSeconds {
		return fmt.Errorf("%w: reconnect needs 0 < initial_seconds <= max_seconds", errs.ErrConfiguration)
	}
	if c.Reconnect.RetryLimit < 1 {
		return fmt.Errorf("%w: reconnect.retry_limit must be at least 1", errs.ErrConfiguration)
	}
	if c.Overlay.RefreshMillis <= 0 {
		return fmt.Errorf("%w: overlay.refresh_millis must be positive", errs.ErrConfiguration)
	}

	_, err := c.EngineConfig()
	return err
}

// EngineConfig builds the immutable decision configuration, resolving every
// key and button name.
func (c *Config) EngineConfig() (decision.Config, error) {
	var out decision.Config
	var err error

	key := func(field, name string) input.Key {
		if err != nil {
			return ""
		}
		k, perr := input.ParseKey(name)
		if perr != nil {
			err = fmt.Errorf("%w: %s: %v", errs.ErrConfiguration, field, perr)
		}
		return k
	}

	mapping := func(field string, names map[string]string) decision.Mapping {
		m := make(decision.Mapping, len(names))
		for b, k := range names {
			button, perr := controller.ParseButton(b)
			if perr != nil && err == nil {
				err = fmt.Errorf("%w: %s: %v", errs.ErrConfiguration, field, perr)
			}
			m[button] = key(field+"."+b, k)
		}
		return m
	}

	out.Thresholds = decision.Thresholds{Boost: c.Cadence.Boost, Upper: c.Cadence.Upper, Lower: c.Cadence.Lower}
	out.ForwardKey = key("cadence.forward_key", c.Cadence.ForwardKey)
	out.BoostKey = key("cadence.boost_key", c.Cadence.BoostKey)
	out.BrakeKey = key("cadence.brake_key", c.Cadence.BrakeKey)
	out.Left = mapping("controllers.left", c.Controllers.Left)
	out.Right = mapping("controllers.right", c.Controllers.Right)
	out.SteeringEnabled = c.Steering.Enabled
	out.Deadzone = c.Steering.Deadzone
	if c.Steering.Enabled {
		out.SteerLeftKey = key("steering.left_key", c.Steering.LeftKey)
		out.SteerRightKey = key("steering.right_key", c.Steering.RightKey)
	}
	if err != nil {
		return decision.Config{}, err
	}

	if err := out.Validate(); err != nil {
		return decision.Config{}, err
	}
	return out, nil
}

// StaleAfter is the external sensor staleness window
func (c *Config) StaleAfter() time.Duration {
	return Seconds(c.External.StaleSeconds)
}

// RefreshInterval is the overlay refresh period
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Overlay.RefreshMillis) * time.Millisecond
}

// Seconds converts a fractional seconds setting to a Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a configuration manager. An empty path selects the
// per-OS default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// DefaultPath returns the per-OS path of the configuration file
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "pedalkeys")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "pedalkeys")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "pedalkeys")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the file the manager reads and writes
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		log.Debugf("Config: %s not found, using defaults", m.configPath)
		return nil
	}
	if err != nil {
		return err
	}

	cfg := DefaultConfig()
	if err := dropReplacedTables(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrConfiguration, m.configPath, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrConfiguration, m.configPath, err)
	}
	m.config = cfg
	return nil
}

// dropReplacedTables clears the default button tables the file supplies.
// json.Unmarshal merges into existing maps, which would keep default
// bindings the user removed.
func dropReplacedTables(data []byte, cfg *Config) error {
	var raw struct {
		Controllers struct {
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		} `json:"controllers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Controllers.Left != nil {
		cfg.Controllers.Left = nil
	}
	if raw.Controllers.Right != nil {
		cfg.Controllers.Right = nil
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Infof("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set replaces the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
}
