package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Proxmox   ProxmoxConfig   `yaml:"proxmox"`
	SSH       SSHConfig       `yaml:"ssh"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DiscoveryConfig holds reconciler settings
type DiscoveryConfig struct {
	Interval       Duration `yaml:"interval"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Concurrency    int      `yaml:"concurrency"`
	// CatalogPath replaces the built-in port/icon tables when set
	CatalogPath string `yaml:"catalog_path,omitempty"`
}

// ProxmoxConfig is an optional connection used when none was saved
type ProxmoxConfig struct {
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user,omitempty"`
	Token     string `yaml:"token,omitempty"`
	TokenID   string `yaml:"token_id,omitempty"`
	VerifyTLS bool   `yaml:"verify_tls"`
	Mock      bool   `yaml:"mock"`
}

// Configured reports whether enough is set to connect
func (p ProxmoxConfig) Configured() bool {
	return p.Host != "" && p.User != "" && p.Token != ""
}

// SSHConfig holds credential provisioning settings
type SSHConfig struct {
	Port           int      `yaml:"port"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"`
	Account        string   `yaml:"account"`
	TokenName      string   `yaml:"token_name"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
