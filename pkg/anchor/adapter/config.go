package adapter

import "time"

// DefaultPort is the port used when a config carries a host but no port.
const DefaultPort = 27017

// DefaultHost is the host used when a config carries neither host nor url.
const DefaultHost = "127.0.0.1"

// Config contains the declarative configuration of one adapter.
// A field is considered present when it holds a non-zero value.
type Config struct {
	// Connection details
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	DB       string `yaml:"db,omitempty" json:"db,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`

	// Cache key selectors
	Instance       string `yaml:"instance,omitempty" json:"instance,omitempty"`
	ConnectionName string `yaml:"connection_name,omitempty" json:"connectionName,omitempty"`

	// SkipConnect builds the adapter without starting the initial connection.
	SkipConnect bool `yaml:"skip_connect,omitempty" json:"skipConnect,omitempty"`

	// Driver options
	AppName        string        `yaml:"app_name,omitempty" json:"appName,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty" json:"connectTimeout,omitempty"`
}

// IsZero reports whether no field of the config is present.
func (c Config) IsZero() bool {
	return c == Config{}
}

// DatabaseName returns db, falling back to database.
func (c Config) DatabaseName() string {
	if c.DB != "" {
		return c.DB
	}
	return c.Database
}

// Merge overlays override onto base. Present override fields win.
func Merge(base Config, override *Config) Config {
	merged := base
	if override == nil {
		return merged
	}

	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.DB != "" {
		merged.DB = override.DB
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.URL != "" {
		merged.URL = override.URL
	}
	if override.Instance != "" {
		merged.Instance = override.Instance
	}
	if override.ConnectionName != "" {
		merged.ConnectionName = override.ConnectionName
	}
	if override.SkipConnect {
		merged.SkipConnect = true
	}
	if override.AppName != "" {
		merged.AppName = override.AppName
	}
	if override.ConnectTimeout != 0 {
		merged.ConnectTimeout = override.ConnectTimeout
	}

	return merged
}
