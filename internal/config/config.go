package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all heulog configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Convert ConvertConfig `yaml:"convert"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
}

// DeviceConfig describes the controller's serial port.
type DeviceConfig struct {
	Path        string `yaml:"path"`
	Baud        int    `yaml:"baud"`
	Megs        int    `yaml:"megs"`
	Serial      string `yaml:"serial"` // used when the dump preamble has none
	LogNum      int    `yaml:"log_num"`
	ReadTimeout string `yaml:"read_timeout"`
}

// ConvertConfig holds the conversion run options.
type ConvertConfig struct {
	StartLine      int  `yaml:"start_line"`
	EndLine        int  `yaml:"end_line"`
	Mute           bool `yaml:"mute"`
	Transcript     bool `yaml:"transcript"`
	Tabular        bool `yaml:"tabular"`
	Echo           bool `yaml:"echo"`
	TimeZoneOffset int  `yaml:"time_zone_offset"`
	DateLineOffset int  `yaml:"date_line_offset"`
	LogVersion     int  `yaml:"log_version"`
}

// OutputConfig says where artifacts go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// StoreConfig configures the scan archive.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Path:        "/dev/ttyUSB0",
			Baud:        38400,
			Megs:        1,
			LogNum:      1,
			ReadTimeout: "5s",
		},
		Convert: ConvertConfig{
			EndLine:    20000000,
			Transcript: true,
			Tabular:    true,
			LogVersion: 2,
		},
		Output: OutputConfig{Dir: "./log_data"},
		Store: StoreConfig{
			Path:    "~/.heulog/scans.db",
			Enabled: true,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("HEULOG_DB"); path != "" {
		c.Store.Path = path
	}
	if dev := os.Getenv("HEULOG_DEVICE"); dev != "" {
		c.Device.Path = dev
	}
	if dir := os.Getenv("HEULOG_OUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
}

// Validate rejects settings no run could honor. Line bounds are not
// checked: an impossible range converts nothing.
func (c *Config) Validate() error {
	var errs []error
	if v := c.Convert.LogVersion; v != 1 && v != 2 {
		errs = append(errs, fmt.Errorf("convert.log_version must be 1 or 2, got %d", v))
	}
	if c.Device.Baud <= 0 {
		errs = append(errs, fmt.Errorf("device.baud must be positive, got %d", c.Device.Baud))
	}
	if m := c.Device.Megs; m < 1 || m > 9999 {
		errs = append(errs, fmt.Errorf("device.megs must be 1..9999, got %d", m))
	}
	if c.Device.ReadTimeout != "" {
		if d, err := time.ParseDuration(c.Device.ReadTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("device.read_timeout: invalid duration %q", c.Device.ReadTimeout))
		}
	}
	return errors.Join(errs...)
}

// ReadTimeout returns the device idle timeout, 5s when unset or invalid.
func (c *Config) ReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Device.ReadTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// StorePath returns the archive path with a leading ~ expanded.
func (c *Config) StorePath() string {
	return expandHome(c.Store.Path)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
