package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/storeid"
)

// Duration parses YAML durations given either as Go duration strings
// ("30s", "5m") or as plain numbers of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asString string
	if err := value.Decode(&asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", asString, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete platform configuration.
type Config struct {
	Version string `yaml:"version"`

	Logging LoggingConfig `yaml:"logging"`
	NATS    NATSConfig    `yaml:"nats"`

	Local  LocalStoreConfig `yaml:"local"`
	Stores []StoreConfig    `yaml:"stores"`

	Series SeriesConfig `yaml:"series"`
	Cache  CacheConfig  `yaml:"cache"`
	Types  TypesConfig  `yaml:"types"`

	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`

	Integrity IntegrityConfig `yaml:"integrity"`
	Auth      AuthConfig      `yaml:"auth"`
}

// AuthConfig declares the credentials the series surface accepts.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens"`
}

// TokenConfig is one credential with its stream permissions.
type TokenConfig struct {
	Token    string `yaml:"token"`
	AccessID string `yaml:"accessId"`
	Personal bool   `yaml:"personal"`

	Permissions []PermissionConfig `yaml:"permissions"`
}

// PermissionConfig grants a level on a stream subtree.
type PermissionConfig struct {
	StreamID string `yaml:"streamId"`
	Level    string `yaml:"level"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// NATSConfig locates the change notification bus. An empty URL disables it.
type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// LocalStoreConfig configures the default document store.
type LocalStoreConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

// StoreConfig declares one additional backend store.
type StoreConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Type selects the backend implementation. Only "memory" ships in this
	// module; external store processes register through their own drivers.
	Type string `yaml:"type"`

	Settings map[string]any `yaml:"settings"`
}

// SeriesConfig configures the series backend.
type SeriesConfig struct {
	DuckDBPath   string `yaml:"duckdbPath"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// CacheConfig tunes the series metadata cache.
type CacheConfig struct {
	TTL             Duration `yaml:"ttl"`
	CleanupInterval Duration `yaml:"cleanupInterval"`
	MaxEntries      int      `yaml:"maxEntries"`
}

// TypesConfig locates the event type catalog.
type TypesConfig struct {
	// SourceURL, when set, is fetched at startup to extend the built-in
	// catalog. Fetch failures keep the current catalog.
	SourceURL string `yaml:"sourceUrl"`
}

// HTTPConfig configures the series HTTP surface.
type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes"`
}

// MetricsConfig configures the metrics endpoint. A zero port disables it.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// IntegrityConfig controls event digest handling.
type IntegrityConfig struct {
	WriteDigests bool `yaml:"writeDigests"`
	VerifyOnRead bool `yaml:"verifyOnRead"`
}

// Default returns the configuration the platform starts with when the file
// omits a setting.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Logging: LoggingConfig{Level: "info", Format: "json"},
		NATS:    NATSConfig{Name: "datamall"},
		Local:   LocalStoreConfig{SQLitePath: "data/local.db"},
		Series:  SeriesConfig{DuckDBPath: "data/series.db", MaxOpenConns: 4},
		Cache: CacheConfig{
			TTL:             Duration(5 * time.Minute),
			CleanupInterval: Duration(time.Minute),
			MaxEntries:      10000,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxBodyBytes:    10 << 20,
		},
	}
}

// Load reads, merges over defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "config", "Load", "parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the platform cannot start with.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewInvalidRequestStructure("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.NewInvalidRequestStructure("unknown logging format %q", c.Logging.Format)
	}
	if c.Local.SQLitePath == "" {
		return errors.NewInvalidRequestStructure("local.sqlitePath must be set")
	}
	if c.Series.DuckDBPath == "" {
		return errors.NewInvalidRequestStructure("series.duckdbPath must be set")
	}
	if c.HTTP.Addr == "" {
		return errors.NewInvalidRequestStructure("http.addr must be set")
	}
	if c.Cache.TTL <= 0 {
		return errors.NewInvalidRequestStructure("cache.ttl must be positive")
	}

	seen := map[string]bool{storeid.Local: true}
	for _, s := range c.Stores {
		if s.ID == "" || s.ID == storeid.Root {
			return errors.NewInvalidRequestStructure("store id %q is not usable", s.ID)
		}
		if seen[s.ID] {
			return errors.NewItemAlreadyExists("store", map[string]any{"id": s.ID})
		}
		seen[s.ID] = true
		if s.Type != "memory" {
			return errors.NewInvalidRequestStructure("unknown store type %q for store %q", s.Type, s.ID)
		}
	}

	tokens := map[string]bool{}
	for _, tok := range c.Auth.Tokens {
		if tok.Token == "" {
			return errors.NewInvalidRequestStructure("auth tokens cannot be empty")
		}
		if tokens[tok.Token] {
			return errors.NewItemAlreadyExists("token", map[string]any{"accessId": tok.AccessID})
		}
		tokens[tok.Token] = true
		for _, p := range tok.Permissions {
			switch p.Level {
			case "read", "contribute", "manage":
			default:
				return errors.NewInvalidRequestStructure(
					"unknown permission level %q on token %q", p.Level, tok.AccessID)
			}
		}
	}
	return nil
}
