package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// SessionDriver identifies which session store backs the gateway.
type SessionDriver string

const (
	DriverPostgres SessionDriver = "postgres"
	DriverSQLite   SessionDriver = "sqlite"
	DriverRedis    SessionDriver = "redis"
	DriverBolt     SessionDriver = "bolt"
	DriverMemory   SessionDriver = "memory"
)

// Common errors
var (
	ErrMissingAPIURL      = errors.New("PORTAL_API_URL is required")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres session driver")
	ErrMissingRedisAddr   = errors.New("REDIS_ADDR is required for the redis session driver")
	ErrBadSessionKey      = errors.New("SESSION_KEY must be 64 hex characters")
	ErrUnknownDriver      = errors.New("unknown session driver")
	ErrBadMessageTTL      = errors.New("MESSAGE_TTL must be between 3s and 5s")
	ErrBadSweepInterval   = errors.New("SWEEP_INTERVAL must be positive")
)

// DefaultAPIURL is the backend the portal talked to before the base URL was configurable.
const DefaultAPIURL = "http://localhost:4000/api"

// Config holds everything the gateway needs at startup.
type Config struct {
	Port string `yaml:"port"`

	// REST backend
	APIURL     string        `yaml:"api_url"`
	APITimeout time.Duration `yaml:"api_timeout"`
	APIRate    float64       `yaml:"api_rate"`
	APIBurst   int           `yaml:"api_burst"`

	// Session store
	SessionDriver SessionDriver `yaml:"session_driver"`
	DatabaseURL   string        `yaml:"database_url"`
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	BoltPath      string        `yaml:"bolt_path"`
	SessionKey    string        `yaml:"session_key"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Collection behavior
	MessageTTL  time.Duration `yaml:"message_ttl"`
	ReloadFloor time.Duration `yaml:"reload_floor"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Port:          "5050",
		APIURL:        DefaultAPIURL,
		APITimeout:    15 * time.Second,
		APIRate:       20,
		APIBurst:      10,
		SessionDriver: DriverMemory,
		SQLitePath:    "data/sessions.db",
		BoltPath:      "data/sessions.bolt",
		SweepInterval: time.Minute,
		MessageTTL:    4 * time.Second,
		ReloadFloor:   2 * time.Second,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// PORTAL_CONFIG, and finally the environment.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("PORTAL_CONFIG")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.overlayEnv()
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - PORTAL_API_URL: REST backend base URL (default: http://localhost:4000/api)
//   - API_TIMEOUT, API_RATE, API_BURST: per-request timeout and client-side rate limit
//   - SESSION_DRIVER: postgres, sqlite, redis, bolt or memory (default: memory)
//   - DATABASE_URL, SQLITE_PATH, REDIS_ADDR, REDIS_PASSWORD, BOLT_PATH: store locations
//   - SESSION_KEY: 64 hex characters used to seal tokens at rest
//   - COOKIE_SECURE: mark the session cookie Secure (default: false)
//   - SWEEP_INTERVAL: how often expired sessions are pruned (default: 1m)
//   - MESSAGE_TTL, RELOAD_FLOOR: status message lifetime and minimum reload spacing
//   - ALLOWED_ORIGINS: comma-separated CORS allow-list
func LoadFromEnv() Config {
	cfg := Defaults()
	cfg.overlayEnv()
	return cfg
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	setString(&c.Port, "PORT")
	setString(&c.APIURL, "PORTAL_API_URL")
	setDuration(&c.APITimeout, "API_TIMEOUT")
	setFloat(&c.APIRate, "API_RATE")
	setInt(&c.APIBurst, "API_BURST")

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SESSION_DRIVER"))); v != "" {
		c.SessionDriver = SessionDriver(v)
	}
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.BoltPath, "BOLT_PATH")
	setString(&c.SessionKey, "SESSION_KEY")
	setBool(&c.CookieSecure, "COOKIE_SECURE")
	setDuration(&c.SweepInterval, "SWEEP_INTERVAL")

	setDuration(&c.MessageTTL, "MESSAGE_TTL")
	setDuration(&c.ReloadFloor, "RELOAD_FLOOR")

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}

	c.APIURL = strings.TrimRight(c.APIURL, "/")
}

// Validate checks that the configuration is usable for the selected session driver.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}

	switch c.SessionDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	case DriverSQLite, DriverBolt, DriverMemory:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDriver, c.SessionDriver)
	}

	if c.SessionKey != "" {
		if _, err := c.SealKey(); err != nil {
			return err
		}
	}

	if c.MessageTTL < 3*time.Second || c.MessageTTL > 5*time.Second {
		return ErrBadMessageTTL
	}
	if c.SweepInterval <= 0 {
		return ErrBadSweepInterval
	}
	return nil
}

// SealKey decodes SessionKey. An empty key returns nil, meaning tokens are
// stored unsealed.
func (c Config) SealKey() ([]byte, error) {
	if c.SessionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SessionKey)
	if err != nil || len(key) != 32 {
		return nil, ErrBadSessionKey
	}
	return key, nil
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat(dst *float64, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
