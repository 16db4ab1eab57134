// Package config provides configuration management for DashV.
//
// Config file locations (priority order):
//  1. $DASHV_CONFIG
//  2. ./dashv.yaml
//  3. ~/.config/dashv/config.yaml
//  4. /etc/dashv/config.yaml
//
// A missing file is not an error: defaults are used. A few environment
// variables override the file, see ApplyEnv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvMock     = "MOCK_PROXMOX"
	EnvPort     = "PORT"
	EnvDatabase = "DASHV_DB"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./dashv.db"
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = Duration(30 * time.Second)
	}
	if c.Discovery.RequestTimeout == 0 {
		c.Discovery.RequestTimeout = Duration(10 * time.Second)
	}
	if c.Discovery.Concurrency == 0 {
		c.Discovery.Concurrency = 4
	}
	if c.Proxmox.Port == 0 {
		c.Proxmox.Port = 8006
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = Duration(10 * time.Second)
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = Duration(30 * time.Second)
	}
	if c.SSH.Account == "" {
		c.SSH.Account = "root@pam"
	}
	if c.SSH.TokenName == "" {
		c.SSH.TokenName = "dashv_auto"
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Discovery.Interval.Duration() < time.Second {
		return fmt.Errorf("discovery.interval must be at least 1s, got %s", c.Discovery.Interval.Duration())
	}
	if c.Discovery.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("discovery.request_timeout must be positive")
	}
	if c.Discovery.Concurrency < 1 {
		return fmt.Errorf("discovery.concurrency must be at least 1, got %d", c.Discovery.Concurrency)
	}
	if c.Proxmox.Port < 1 || c.Proxmox.Port > 65535 {
		return fmt.Errorf("proxmox.port out of range: %d", c.Proxmox.Port)
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port out of range: %d", c.SSH.Port)
	}
	return nil
}

// ApplyEnv applies environment overrides. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvMock); v != "" {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMock, err)
		}
		c.Proxmox.Mock = mock
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Server.Addr = ":" + v
	}
	if v := strings.TrimSpace(getenv(EnvDatabase)); v != "" {
		c.Database.Path = v
	}
	return nil
}
