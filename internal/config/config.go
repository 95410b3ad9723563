package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// ProbeConfig tunes the connectivity check.
type ProbeConfig struct {
	// Timeout bounds a single probe request. Zero leaves the transport default in place.
	Timeout Duration `json:"timeout"`
	// MinServerVersion marks older servers in the success status. Empty disables the check.
	MinServerVersion string `json:"min_server_version"`
}

// CredentialsConfig controls how the stored password is kept at rest.
type CredentialsConfig struct {
	EncryptAtRest bool `json:"encrypt_at_rest"`
}

// UIConfig stores persistent UI preferences.
type UIConfig struct {
	StartHidden       bool `json:"start_hidden"`
	NotifyProbeResult bool `json:"notify_probe_result"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Logging     LoggingConfig     `json:"logging"`
	Probe       ProbeConfig       `json:"probe"`
	Credentials CredentialsConfig `json:"credentials"`
	UI          UIConfig          `json:"ui"`
}

func Default() AppConfig {
	return AppConfig{
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
		Probe: ProbeConfig{
			Timeout:          0,
			MinServerVersion: "",
		},
		Credentials: CredentialsConfig{
			EncryptAtRest: false,
		},
		UI: UIConfig{
			StartHidden:       false,
			NotifyProbeResult: true,
		},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Probe.Timeout < 0 {
		c.Probe.Timeout = 0
	}
	c.Probe.MinServerVersion = strings.TrimSpace(c.Probe.MinServerVersion)
}

func (c AppConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level: %q", c.Logging.Level)
	}
	if c.Probe.Timeout < 0 {
		return errors.New("probe timeout must not be negative")
	}

	return nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}

// Duration is a time.Duration stored as a Go duration string ("15s") in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	if d == 0 {
		return json.Marshal("")
	}

	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(raw []byte) error {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var millis int64
		if numErr := json.Unmarshal(raw, &millis); numErr != nil {
			return fmt.Errorf("decode duration: %w", err)
		}
		*d = Duration(time.Duration(millis) * time.Millisecond)

		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		*d = 0

		return nil
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)

	return nil
}
