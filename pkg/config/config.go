package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pbxkit/pbxkit-go/pkg/manager"
)

// Validation errors.
var (
	ErrMissingAddress  = errors.New("address is required")
	ErrMissingUsername = errors.New("username is required")
)

// Duration is a time.Duration that unmarshals from YAML strings such
// as "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the YAML client configuration.
type Config struct {
	// Address is the admin service endpoint, host:port.
	Address string `yaml:"address"`

	// Username and Secret authenticate the login.
	Username string `yaml:"username"`
	Secret   string `yaml:"secret"`

	// UseChallenge selects challenge/response login.
	UseChallenge bool `yaml:"use_challenge"`

	// Events is the login event mask ("on", "off", or class list).
	Events string `yaml:"events"`

	// ActionTimeout bounds each request's reply wait.
	ActionTimeout Duration `yaml:"action_timeout"`

	// ConnectTimeout bounds dialing.
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// Reconnect enables automatic redial with backoff.
	Reconnect bool `yaml:"reconnect"`

	// WireLog is a path for CBOR protocol capture; empty disables it.
	WireLog string `yaml:"wire_log"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Events:         "on",
		ActionTimeout:  Duration(manager.DefaultActionTimeout),
		ConnectTimeout: Duration(manager.DefaultConnectTimeout),
		Reconnect:      true,
	}
}

// Load reads and validates the YAML configuration at path, applying
// defaults for unset fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrMissingAddress
	}
	if c.Username == "" {
		return ErrMissingUsername
	}
	return nil
}

// ManagerConfig converts the file configuration into a manager client
// configuration.
func (c *Config) ManagerConfig() manager.Config {
	return manager.Config{
		Address:        c.Address,
		Username:       c.Username,
		Secret:         c.Secret,
		UseChallenge:   c.UseChallenge,
		Events:         c.Events,
		ActionTimeout:  time.Duration(c.ActionTimeout),
		ConnectTimeout: time.Duration(c.ConnectTimeout),
	}
}
