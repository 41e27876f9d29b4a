// Package config loads the client configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Duration is a time.Duration written as a string ("30s", "1h") in YAML
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

type (
	StoreConfig struct {
		Path     string `yaml:"path"`
		Password string `yaml:"password"`
	}

	HandshakeConfig struct {
		Timeout    Duration `yaml:"timeout"`
		MaxRetries int      `yaml:"max_retries"`
	}

	SessionConfig struct {
		PingInterval Duration `yaml:"ping_interval"`
		CallTimeout  Duration `yaml:"call_timeout"`
		AckFlush     Duration `yaml:"ack_flush"`
	}

	LogConfig struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	APIConfig struct {
		Port       int  `yaml:"port"`
		EnableCORS bool `yaml:"enable_cors"`
		RateLimit  int  `yaml:"rate_limit"`
	}

	// Config is everything a client needs to reach one data center
	Config struct {
		DC             int      `yaml:"dc"`
		Address        string   `yaml:"address"`
		TestMode       bool     `yaml:"test_mode"`
		MediaOnly      bool     `yaml:"media_only"`
		PublicKeysFile string   `yaml:"public_keys_file"`
		TempKeyTTL     Duration `yaml:"temp_key_ttl"`

		Store     StoreConfig     `yaml:"store"`
		Handshake HandshakeConfig `yaml:"handshake"`
		Session   SessionConfig   `yaml:"session"`
		Log       LogConfig       `yaml:"log"`
		API       APIConfig       `yaml:"api"`
	}
)

// Default returns a configuration for production DC 2
func Default() *Config {
	return &Config{
		DC:      2,
		Address: "/ip4/149.154.167.50/tcp/443",
		Handshake: HandshakeConfig{
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 5,
		},
		Session: SessionConfig{
			PingInterval: Duration(30 * time.Second),
			CallTimeout:  Duration(30 * time.Second),
			AckFlush:     Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Port:      8081,
			RateLimit: 100,
		},
	}
}

// Load reads path over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that the address resolves to a TCP endpoint
func (c *Config) Validate() error {
	if c.DC <= 0 {
		return fmt.Errorf("%w: dc must be positive, got %d", ErrInvalidConfig, c.DC)
	}
	if _, _, err := c.NetAddr(); err != nil {
		return err
	}
	if c.TempKeyTTL < 0 {
		return fmt.Errorf("%w: temp_key_ttl is negative", ErrInvalidConfig)
	}
	if c.Handshake.MaxRetries < 0 {
		return fmt.Errorf("%w: handshake.max_retries is negative", ErrInvalidConfig)
	}
	if c.Session.PingInterval < 0 || c.Session.CallTimeout < 0 || c.Session.AckFlush < 0 {
		return fmt.Errorf("%w: session intervals must not be negative", ErrInvalidConfig)
	}
	if c.Store.Path != "" && c.Store.Password == "" {
		return fmt.Errorf("%w: store.password is required with store.path", ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api.port out of range", ErrInvalidConfig)
	}
	return nil
}

// Multiaddr parses Address
func (c *Config) Multiaddr() (ma.Multiaddr, error) {
	addr, err := ma.NewMultiaddr(c.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %v", ErrInvalidConfig, c.Address, err)
	}
	return addr, nil
}

// NetAddr converts Address into arguments for net.Dial
func (c *Config) NetAddr() (network, address string, err error) {
	maddr, err := c.Multiaddr()
	if err != nil {
		return "", "", err
	}
	addr, err := manet.ToNetAddr(maddr)
	if err != nil {
		return "", "", fmt.Errorf("%w: address %q: %v", ErrInvalidConfig, c.Address, err)
	}
	if addr.Network() != "tcp" {
		return "", "", fmt.Errorf("%w: address %q is not a tcp endpoint", ErrInvalidConfig, c.Address)
	}
	return addr.Network(), addr.String(), nil
}
