package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/nondisposable/internal/blocklist"
	"github.com/ignite/nondisposable/internal/domain"
)

// DefaultBlocklistURL is the upstream list of disposable email domains.
const DefaultBlocklistURL = blocklist.DefaultURL

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Rules     domain.Rules    `yaml:"rules"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig guards the admin routes (refresh, rules). Callers present one
// of AdminTokens as a bearer token. With no tokens the admin routes reject
// every request unless DevMode is set.
type AuthConfig struct {
	AdminTokens []string `yaml:"admin_tokens"`
	DevMode     bool     `yaml:"dev_mode"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// StoreConfig selects the DomainStore backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres, redis or memory
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// ConnLifetime returns the configured connection lifetime as a duration
func (c DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// RedisConfig holds Redis connection settings. Redis backs the redis store
// driver and the refresh lock.
type RedisConfig struct {
	URL    string `yaml:"url"`
	SetKey string `yaml:"set_key"`
}

// BlocklistConfig controls fetching and refreshing the remote list.
type BlocklistConfig struct {
	URL                    string `yaml:"url"`
	TimeoutSeconds         int    `yaml:"timeout_seconds"`
	MaxRetries             int    `yaml:"max_retries"`
	MaxBodyBytes           int64  `yaml:"max_body_bytes"`
	RefreshIntervalMinutes int    `yaml:"refresh_interval_minutes"`
	RefreshOnStart         *bool  `yaml:"refresh_on_start"`
	LockTTLSeconds         int    `yaml:"lock_ttl_seconds"`
	S3Region               string `yaml:"s3_region"`
	AWSProfile             string `yaml:"aws_profile"`
}

// Timeout returns the configured fetch timeout as a duration
func (c BlocklistConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Interval returns the refresh interval as a duration
func (c BlocklistConfig) Interval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// LockTTL returns the refresh lock TTL as a duration
func (c BlocklistConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ShouldRefreshOnStart reports whether the worker refreshes before its first tick.
func (c BlocklistConfig) ShouldRefreshOnStart() bool {
	return c.RefreshOnStart == nil || *c.RefreshOnStart
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMemory
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Redis.SetKey == "" {
		cfg.Redis.SetKey = "nondisposable:domains"
	}
	if cfg.Blocklist.URL == "" {
		cfg.Blocklist.URL = DefaultBlocklistURL
	}
	if cfg.Blocklist.TimeoutSeconds == 0 {
		cfg.Blocklist.TimeoutSeconds = 30
	}
	if cfg.Blocklist.MaxBodyBytes == 0 {
		cfg.Blocklist.MaxBodyBytes = 16 << 20
	}
	if cfg.Blocklist.RefreshIntervalMinutes == 0 {
		cfg.Blocklist.RefreshIntervalMinutes = 24 * 60
	}
	if cfg.Blocklist.LockTTLSeconds == 0 {
		cfg.Blocklist.LockTTLSeconds = 600
	}
	if cfg.Blocklist.S3Region == "" {
		cfg.Blocklist.S3Region = "us-west-2"
	}
	if cfg.Rules.ErrorMessage == "" {
		cfg.Rules.ErrorMessage = domain.DefaultErrorMessage
	}
	if cfg.Rules.AdditionalDomains == nil {
		cfg.Rules.AdditionalDomains = []string{}
	}
	if cfg.Rules.ExcludedDomains == nil {
		cfg.Rules.ExcludedDomains = []string{}
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("store driver %q requires database.url", c.Store.Driver)
		}
		// Without Redis the refresh lock pins a pooled connection for the
		// whole run, and ReplaceAll needs another one.
		if c.Redis.URL == "" && c.Database.MaxOpenConns == 1 {
			return fmt.Errorf("database.max_open_conns must be at least 2 when the refresh lock uses postgres (set redis.url or raise the limit)")
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("store driver %q requires redis.url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Blocklist.TimeoutSeconds < 0 {
		return fmt.Errorf("blocklist.timeout_seconds must not be negative")
	}
	if c.Blocklist.MaxRetries < 0 {
		return fmt.Errorf("blocklist.max_retries must not be negative")
	}
	return nil
}

// LoadFromEnv loads a YAML file (if path is non-empty) and then applies
// environment overrides. A .env file in the working directory is honored.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = Default()
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT=%q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := os.LookupEnv("ADMIN_API_TOKENS"); ok {
		cfg.Auth.AdminTokens = splitList(v)
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		cfg.Auth.DevMode = v == "true"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Database override (DATABASE_URL also switches the driver when unset in YAML)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
		if path == "" {
			cfg.Store.Driver = DriverPostgres
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}

	if v := os.Getenv("BLOCKLIST_URL"); v != "" {
		cfg.Blocklist.URL = v
	}
	if v := os.Getenv("BLOCKLIST_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BLOCKLIST_TIMEOUT_SECONDS=%q: %w", v, err)
		}
		cfg.Blocklist.TimeoutSeconds = secs
	}
	if v := os.Getenv("AWS_PROFILE_OVERRIDE"); v != "" {
		cfg.Blocklist.AWSProfile = v
	}

	// Rule overrides
	if v := os.Getenv("NONDISPOSABLE_ERROR_MESSAGE"); v != "" {
		cfg.Rules.ErrorMessage = v
	}
	if v, ok := os.LookupEnv("NONDISPOSABLE_ADDITIONAL_DOMAINS"); ok {
		cfg.Rules.AdditionalDomains = splitList(v)
	}
	if v, ok := os.LookupEnv("NONDISPOSABLE_EXCLUDED_DOMAINS"); ok {
		cfg.Rules.ExcludedDomains = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList parses a comma-separated env value. Entries are kept verbatim
// apart from surrounding whitespace left by the separator.
func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
