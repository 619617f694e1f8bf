package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

// Config is the anchor service configuration file.
type Config struct {
	Anchor   AnchorConfig   `yaml:"anchor"`
	Logging  LoggingConfig  `yaml:"logging"`
	Common   adapter.Config `yaml:"common"`
	Register []string       `yaml:"register"`
	Load     []LoadConfig   `yaml:"load"`
}

type AnchorConfig struct {
	RetryDelay          time.Duration `yaml:"retry_delay"`
	ReadyTimeout        time.Duration `yaml:"ready_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	MetricsAddr         string        `yaml:"metrics_addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig is one adapter to load on start.
type LoadConfig struct {
	Name   string          `yaml:"name"`
	Config *adapter.Config `yaml:"config"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Anchor.RetryDelay == 0 {
		c.Anchor.RetryDelay = adapter.DefaultRetryDelay
	}
	if c.Anchor.ReadyTimeout == 0 {
		c.Anchor.ReadyTimeout = adapter.DefaultReadyTimeout
	}
	if c.Anchor.ShutdownTimeout == 0 {
		c.Anchor.ShutdownTimeout = 30 * time.Second
	}
	if c.Anchor.HealthCheckInterval == 0 {
		c.Anchor.HealthCheckInterval = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	// A url overrides host and port, so only default them without one
	if c.Common.URL == "" {
		if c.Common.Host == "" {
			c.Common.Host = adapter.DefaultHost
		}
		if c.Common.Port == 0 {
			c.Common.Port = adapter.DefaultPort
		}
	}
}

// Drivers returns the driver names to register. An empty register list
// selects every known driver.
func (c *Config) Drivers(known []string) []string {
	if len(c.Register) == 0 {
		return known
	}
	return c.Register
}

// Validate checks the register and load lists against the known driver names.
// All problems are reported together.
func (c *Config) Validate(known []string) error {
	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}

	var errs error
	registered := make(map[string]bool)
	for _, name := range c.Drivers(known) {
		if !knownSet[name] {
			errs = multierr.Append(errs, fmt.Errorf("register: unknown adapter %q", name))
			continue
		}
		registered[name] = true
	}

	for i, l := range c.Load {
		switch {
		case l.Name == "":
			errs = multierr.Append(errs, fmt.Errorf("load[%d]: name is required", i))
		case !registered[l.Name]:
			errs = multierr.Append(errs, fmt.Errorf("load[%d]: adapter %q is not registered", i, l.Name))
		}
	}

	if c.Anchor.RetryDelay < 0 || c.Anchor.ReadyTimeout < 0 {
		errs = multierr.Append(errs, errors.New("anchor: durations must not be negative"))
	}
	return errs
}
