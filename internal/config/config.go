// Package config loads the YAML configuration of the tickwire binary.
package config

import (
	"os"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/luciancaetano/tickwire/internal/network"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/task"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// Config represents the process configuration
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Network NetworkConfig `yaml:"network"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`    // "json" or "console"
	FilePath string `yaml:"file_path"` // Optional, appended to
}

// NetworkConfig represents the transport and connection settings
type NetworkConfig struct {
	Transport         string          `yaml:"transport"`
	Address           string          `yaml:"address"`
	HeartbeatInterval time.Duration   `yaml:"heartbeat_interval"`
	RetryDelay        time.Duration   `yaml:"retry_delay"`
	MaxFrameLength    int             `yaml:"max_frame_length"`
	TickInterval      time.Duration   `yaml:"tick_interval"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	TLS               TLSConfig       `yaml:"tls"`
}

// RateLimitConfig bounds inbound packets per connection
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// TLSConfig locates certificates for the QUIC transport. When no files are
// given the server generates a self-signed certificate.
type TLSConfig struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	CAFile     string `yaml:"ca_file"`
	ServerName string `yaml:"server_name"`
}

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	limit := task.DefaultRateLimitConfig()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Network: NetworkConfig{
			Transport:         string(transport.TCP),
			Address:           "127.0.0.1:7777",
			HeartbeatInterval: task.DefaultHeartbeatInterval,
			RetryDelay:        transport.DefaultRetryDelay,
			MaxFrameLength:    protocol.DefaultMaxFrameLength,
			TickInterval:      50 * time.Millisecond,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				MessagesPerSecond: float64(limit.MessagesPerSecond),
				Burst:             limit.Burst,
			},
			TLS: TLSConfig{
				ServerName: "localhost",
			},
		},
	}
}

// LoadConfig reads filename on top of the defaults. Keys missing from the
// file keep their default value.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// SaveConfig writes config to filename
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	if err := c.Network.Validate(); err != nil {
		return errors.Wrap(err, "network validation failed")
	}
	return nil
}

// Validate validates the network configuration
func (n *NetworkConfig) Validate() error {
	if _, err := transport.ParseKind(n.Transport); err != nil {
		return err
	}
	if n.Address == "" {
		return errors.New("address is required")
	}
	if n.HeartbeatInterval <= 0 {
		return errors.Errorf("heartbeat_interval must be positive, got %s", n.HeartbeatInterval)
	}
	if n.RetryDelay <= 0 {
		return errors.Errorf("retry_delay must be positive, got %s", n.RetryDelay)
	}
	if n.TickInterval <= 0 {
		return errors.Errorf("tick_interval must be positive, got %s", n.TickInterval)
	}
	if n.MaxFrameLength <= 0 {
		return errors.Errorf("max_frame_length must be positive, got %d", n.MaxFrameLength)
	}
	if n.RateLimit.Enabled && (n.RateLimit.MessagesPerSecond <= 0 || n.RateLimit.Burst <= 0) {
		return errors.New("rate_limit needs a positive messages_per_second and burst when enabled")
	}
	if (n.TLS.CertFile == "") != (n.TLS.KeyFile == "") {
		return errors.New("tls cert_file and key_file must be set together")
	}
	return nil
}

// Kind returns the configured transport.
func (n *NetworkConfig) Kind() transport.Kind {
	return transport.Kind(n.Transport)
}

// Limits converts the rate limit section for the receive task.
func (n *NetworkConfig) Limits() *task.RateLimitConfig {
	if !n.RateLimit.Enabled {
		return task.NoRateLimit()
	}
	return &task.RateLimitConfig{
		MessagesPerSecond: rate.Limit(n.RateLimit.MessagesPerSecond),
		Burst:             n.RateLimit.Burst,
		Enabled:           true,
	}
}

// NetworkOptions builds the settings shared by servers and clients.
func (c *Config) NetworkOptions() network.Config {
	return network.Config{
		HeartbeatInterval: c.Network.HeartbeatInterval,
		MaxFrameLength:    c.Network.MaxFrameLength,
		RateLimit:         c.Network.Limits(),
		RetryDelay:        c.Network.RetryDelay,
	}
}
