package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full CLI configuration.
type Config struct {
	Replication struct {
		Endpoint string `yaml:"endpoint"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		// AppliancePattern overrides the default infrastructure
		// appliance naming convention.
		AppliancePattern string `yaml:"appliance_pattern"`
	} `yaml:"replication"`
	Platform struct {
		Endpoint string `yaml:"endpoint"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"platform"`
	Defaults struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		TimeoutSeconds      int `yaml:"timeout_seconds"`
	} `yaml:"defaults"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Telemetry struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"telemetry"`
}

// PollInterval returns the configured drain poll interval, or zero when the
// built-in default should apply.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Defaults.PollIntervalSeconds) * time.Second
}

// Timeout returns the per-request timeout for control-plane calls.
func (c Config) Timeout() time.Duration {
	if c.Defaults.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Defaults.TimeoutSeconds) * time.Second
}

// LoadConfig reads YAML configuration from a path. If path is empty, it resolves
// $XDG_CONFIG_HOME/vrelo/config.yaml or ~/.config/vrelo/config.yaml.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "vrelo", "config.yaml")
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	// Merge credentials from secrets.env if present to avoid storing
	// passwords in YAML. Environment variables win over the file.
	secrets, _ := LoadSecretsEnv("")
	if v := os.Getenv("VRELO_REPLICATION_PASSWORD"); v != "" {
		secrets["VRELO_REPLICATION_PASSWORD"] = v
	}
	if v := os.Getenv("VRELO_PLATFORM_PASSWORD"); v != "" {
		secrets["VRELO_PLATFORM_PASSWORD"] = v
	}
	if p, ok := secrets["VRELO_REPLICATION_PASSWORD"]; ok && p != "" {
		cfg.Replication.Password = p
	}
	if p, ok := secrets["VRELO_PLATFORM_PASSWORD"]; ok && p != "" {
		cfg.Platform.Password = p
	}
	return cfg, nil
}
