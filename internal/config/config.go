package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend      BackendConfig      `yaml:"backend"`
	Data         DataConfig         `yaml:"data"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Stub         StubConfig         `yaml:"stub"`
}

// BackendConfig points at the workout-log backend.
type BackendConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// DataConfig locates the durable client state. Dir defaults to ~/.liftlog
// when empty.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ConnectivityConfig tunes the host-level connectivity monitor.
type ConnectivityConfig struct {
	ProbeIntervalSeconds int `yaml:"probe_interval_seconds"`
}

// StubConfig configures the dev backend stub binary.
type StubConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix LIFTLOG_ and underscore-separated
// paths:
//
//	LIFTLOG_BACKEND_URL, LIFTLOG_BACKEND_API_KEY,
//	LIFTLOG_DATA_DIR, LIFTLOG_PROBE_INTERVAL_SECONDS,
//	LIFTLOG_STUB_HOST, LIFTLOG_STUB_PORT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("LIFTLOG_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("LIFTLOG_PROBE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Connectivity.ProbeIntervalSeconds = n
		}
	}
	if v := os.Getenv("LIFTLOG_STUB_HOST"); v != "" {
		cfg.Stub.Host = v
	}
	if v := os.Getenv("LIFTLOG_STUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Stub.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Connectivity.ProbeIntervalSeconds == 0 {
		cfg.Connectivity.ProbeIntervalSeconds = 30
	}
	if cfg.Stub.Port == 0 {
		cfg.Stub.Port = 8844
	}
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}
	if c.Stub.Tailscale.Enabled && c.Stub.Tailscale.Hostname == "" {
		return fmt.Errorf("stub.tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
