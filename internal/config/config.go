// Package config loads restorm configuration from restorm.yaml and RESTORM_*
// environment variables, and turns it into a ready client.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/logging"
)

// FileName is the config file looked up in the working directory
const FileName = "restorm.yaml"

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "RESTORM"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config represents the restorm configuration
type Config struct {
	Site     string            `mapstructure:"site" yaml:"site"`
	Format   string            `mapstructure:"format" yaml:"format"`
	Timeout  time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Timezone string            `mapstructure:"timezone" yaml:"timezone"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`

	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Log       logging.Config  `mapstructure:"log" yaml:"log"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`

	Resources []ResourceConfig `mapstructure:"resources" yaml:"resources,omitempty"`
	// RecordMap binds wire names to declared resource names
	RecordMap map[string]string `mapstructure:"record_map" yaml:"record_map,omitempty"`
	// DefaultRecordMap binds wire names in the default tier, which record_map
	// entries may override
	DefaultRecordMap map[string]string `mapstructure:"default_record_map" yaml:"default_record_map,omitempty"`
}

// AuthConfig selects how requests authenticate
type AuthConfig struct {
	// Type is one of none, basic, bearer, jwt
	Type     string        `mapstructure:"type" yaml:"type"`
	User     string        `mapstructure:"user" yaml:"user,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Token    string        `mapstructure:"token" yaml:"token,omitempty"`
	Secret   string        `mapstructure:"secret" yaml:"secret,omitempty"`
	Subject  string        `mapstructure:"subject" yaml:"subject,omitempty"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// RetryConfig controls retries of idempotent reads
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff" yaml:"backoff"`
}

// RateLimitConfig caps outgoing requests. Zero requests disables the limit.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Per      time.Duration `mapstructure:"per" yaml:"per"`
}

// CacheConfig selects the GET response cache
type CacheConfig struct {
	// Backend is one of none, memory, redis
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis,omitempty"`
}

// RedisConfig locates the Redis server of the redis backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db,omitempty"`
}

// ResourceConfig declares one remote resource type
type ResourceConfig struct {
	Name           string            `mapstructure:"name" yaml:"name"`
	Parent         string            `mapstructure:"parent" yaml:"parent,omitempty"`
	Prefix         string            `mapstructure:"prefix" yaml:"prefix,omitempty"`
	PrimaryKey     string            `mapstructure:"primary_key" yaml:"primary_key,omitempty"`
	ElementName    string            `mapstructure:"element_name" yaml:"element_name,omitempty"`
	CollectionName string            `mapstructure:"collection_name" yaml:"collection_name,omitempty"`
	CollectionPath string            `mapstructure:"collection_path" yaml:"collection_path,omitempty"`
	Singleton      bool              `mapstructure:"singleton" yaml:"singleton,omitempty"`
	IncludeRoot    *bool             `mapstructure:"include_root" yaml:"include_root,omitempty"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`

	// Attributes maps attribute names to kind names
	Attributes map[string]string `mapstructure:"attributes" yaml:"attributes,omitempty"`
	// Extra attributes are fetched on demand
	Extra map[string]string `mapstructure:"extra" yaml:"extra,omitempty"`
	// ExtraDefault attributes are requested with every fetch
	ExtraDefault map[string]string `mapstructure:"extra_default" yaml:"extra_default,omitempty"`
	// Money names monetized attributes backed by <name>_cents and <name>_currency
	Money []string `mapstructure:"money" yaml:"money,omitempty"`

	BelongsTo []AssociationConfig `mapstructure:"belongs_to" yaml:"belongs_to,omitempty"`
	HasMany   []AssociationConfig `mapstructure:"has_many" yaml:"has_many,omitempty"`
	HasOne    []AssociationConfig `mapstructure:"has_one" yaml:"has_one,omitempty"`
}

// AssociationConfig declares one association of a resource
type AssociationConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	ClassName    string `mapstructure:"class_name" yaml:"class_name,omitempty"`
	ForeignKey   string `mapstructure:"foreign_key" yaml:"foreign_key,omitempty"`
	ForeignType  string `mapstructure:"foreign_type" yaml:"foreign_type,omitempty"`
	Polymorphic  bool   `mapstructure:"polymorphic" yaml:"polymorphic,omitempty"`
	As           string `mapstructure:"as" yaml:"as,omitempty"`
	Extra        bool   `mapstructure:"extra" yaml:"extra,omitempty"`
	ExtraDefault bool   `mapstructure:"extra_default" yaml:"extra_default,omitempty"`
	Schema       string `mapstructure:"schema" yaml:"schema,omitempty"`
}

var defaults = map[string]any{
	"site":                 "",
	"format":               "json",
	"timeout":              30 * time.Second,
	"timezone":             "UTC",
	"auth.type":            "none",
	"auth.user":            "",
	"auth.password":        "",
	"auth.token":           "",
	"auth.secret":          "",
	"auth.subject":         "restorm",
	"auth.ttl":             5 * time.Minute,
	"retry.attempts":       0,
	"retry.backoff":        200 * time.Millisecond,
	"rate_limit.requests":  0,
	"rate_limit.per":       time.Second,
	"log.level":            "info",
	"log.development":      false,
	"cache.backend":        "none",
	"cache.ttl":            5 * time.Minute,
	"cache.prefix":         "restorm:",
	"cache.redis.addr":     "localhost:6379",
	"cache.redis.password": "",
	"cache.redis.db":       0,
}

// Default returns the configuration used when no file or environment is present
func Default() *Config {
	return &Config{
		Format:    "json",
		Timeout:   30 * time.Second,
		Timezone:  "UTC",
		Auth:      AuthConfig{Type: "none", Subject: "restorm", TTL: 5 * time.Minute},
		Retry:     RetryConfig{Backoff: 200 * time.Millisecond},
		RateLimit: RateLimitConfig{Per: time.Second},
		Log:       logging.Config{Level: "info"},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     5 * time.Minute,
			Prefix:  "restorm:",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
	}
}

// EnvName returns the environment variable overriding key: log.level → RESTORM_LOG_LEVEL
func EnvName(key string) string {
	return EnvPrefix + "_" + strcase.ToScreamingSnake(strings.ReplaceAll(key, ".", "_"))
}

// Load reads the configuration from path, or from restorm.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the client cannot use
func (c *Config) Validate() error {
	if _, err := format.ByName(c.Format); err != nil {
		return fmt.Errorf("%w: format: %v", ErrInvalidConfig, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.Requests < 0 || (c.RateLimit.Requests > 0 && c.RateLimit.Per <= 0) {
		return fmt.Errorf("%w: rate_limit needs positive requests and per", ErrInvalidConfig)
	}

	switch c.Auth.Type {
	case "", "none":
	case "basic":
		if c.Auth.User == "" {
			return fmt.Errorf("%w: basic auth requires auth.user", ErrInvalidConfig)
		}
	case "bearer":
		if c.Auth.Token == "" {
			return fmt.Errorf("%w: bearer auth requires auth.token", ErrInvalidConfig)
		}
	case "jwt":
		if c.Auth.Secret == "" {
			return fmt.Errorf("%w: jwt auth requires auth.secret", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth type %q", ErrInvalidConfig, c.Auth.Type)
	}

	switch c.Cache.Backend {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	seen := make(map[string]bool, len(c.Resources))
	for i, res := range c.Resources {
		if res.Name == "" {
			return fmt.Errorf("%w: resources[%d] has no name", ErrInvalidConfig, i)
		}
		if seen[res.Name] {
			return fmt.Errorf("%w: resource %s is declared twice", ErrInvalidConfig, res.Name)
		}
		if res.Parent != "" && !seen[res.Parent] {
			return fmt.Errorf("%w: resource %s must follow its parent %s", ErrInvalidConfig, res.Name, res.Parent)
		}
		seen[res.Name] = true
	}
	for wire, name := range c.RecordMap {
		if !seen[name] {
			return fmt.Errorf("%w: record_map %s points to undeclared resource %s", ErrInvalidConfig, wire, name)
		}
	}
	for wire, name := range c.DefaultRecordMap {
		if !seen[name] {
			return fmt.Errorf("%w: default_record_map %s points to undeclared resource %s", ErrInvalidConfig, wire, name)
		}
	}
	return nil
}

// Location returns the time zone naive datetimes are read in
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Write saves cfg as YAML to path
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
