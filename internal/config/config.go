// Package config loads server settings from defaults, an optional TOML file
// and STOREFRONT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"storefront/internal/domain/compare"
	"storefront/internal/domain/pricing"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STOREFRONT_"

// PathEnv names the variable holding the TOML config path.
const PathEnv = EnvPrefix + "CONFIG"

// Duration is a time.Duration read from strings like "30s" in TOML and env.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Addr     string `toml:"addr" env:"ADDR" validate:"required"`
	Env      string `toml:"env" env:"ENV" validate:"oneof=development production test"`
	LogLevel string `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	// StaticDir is served at / when set.
	StaticDir string `toml:"static_dir" env:"STATIC_DIR"`

	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Session  SessionConfig  `toml:"session" envPrefix:"SESSION_"`
	Security SecurityConfig `toml:"security" envPrefix:"SECURITY_"`
	Email    EmailConfig    `toml:"email" envPrefix:"EMAIL_"`
	Catalog  CatalogConfig  `toml:"catalog" envPrefix:"CATALOG_"`
	Perf     PerfConfig     `toml:"perf" envPrefix:"PERF_"`
	Outbox   OutboxConfig   `toml:"outbox" envPrefix:"OUTBOX_"`
	Pricing  pricing.Rules  `toml:"pricing"`
}

type StorageConfig struct {
	Backend      string   `toml:"backend" env:"BACKEND" validate:"oneof=sqlite redis"`
	// DBPath is always opened: the outbox lives in SQLite whichever backend holds session state.
	DBPath       string   `toml:"db_path" env:"DB_PATH" validate:"required"`
	RedisURL     string   `toml:"redis_url" env:"REDIS_URL" validate:"required_if=Backend redis"`
	RedisTTL     Duration `toml:"redis_ttl" env:"REDIS_TTL"`
	WriteTimeout Duration `toml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gt=0"`
}

type SessionConfig struct {
	CookieSecure  bool           `toml:"cookie_secure" env:"COOKIE_SECURE"`
	IdleTTL       Duration       `toml:"idle_ttl" env:"IDLE_TTL" validate:"gt=0"`
	SweepInterval Duration       `toml:"sweep_interval" env:"SWEEP_INTERVAL" validate:"gt=0"`
	ComparePolicy compare.Policy `toml:"compare_policy" env:"COMPARE_POLICY" validate:"oneof=ignore reject evict-oldest"`
}

type SecurityConfig struct {
	// CSRFKey is 32 bytes, hex or raw. Empty generates a per-process key.
	CSRFKey        string   `toml:"csrf_key" env:"CSRF_KEY"`
	TrustedOrigins []string `toml:"trusted_origins" env:"TRUSTED_ORIGINS" envSeparator:","`
	RateLimit      float64  `toml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"`
	RateBurst      int      `toml:"rate_burst" env:"RATE_BURST" validate:"gte=0"`
	// AdminToken guards the outbox admin endpoints. Empty disables them.
	AdminToken string `toml:"admin_token" env:"ADMIN_TOKEN" validate:"omitempty,min=16"`
}

type EmailConfig struct {
	ResendKey string `toml:"resend_key" env:"RESEND_KEY"`
	From      string `toml:"from" env:"FROM" validate:"required"`
	ReplyTo   string `toml:"reply_to" env:"REPLY_TO"`
}

type CatalogConfig struct {
	// Path to a YAML catalog. Empty serves the embedded catalog without watching.
	Path string `toml:"path" env:"PATH"`
}

type PerfConfig struct {
	SlowRequest Duration `toml:"slow_request" env:"SLOW_REQUEST" validate:"gt=0"`
	SlowQuery   Duration `toml:"slow_query" env:"SLOW_QUERY" validate:"gt=0"`
	RingSize    int      `toml:"ring_size" env:"RING_SIZE" validate:"gt=0"`
}

type OutboxConfig struct {
	Interval  Duration `toml:"interval" env:"INTERVAL" validate:"gt=0"`
	BaseDelay Duration `toml:"base_delay" env:"BASE_DELAY" validate:"gt=0"`
	MaxDelay  Duration `toml:"max_delay" env:"MAX_DELAY" validate:"gtefield=BaseDelay"`
}

// Defaults returns the settings used when neither file nor environment set a value.
func Defaults() Config {
	return Config{
		Addr:     ":8080",
		Env:      "development",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend:      "sqlite",
			DBPath:       "storefront.db",
			RedisTTL:     Duration(30 * 24 * time.Hour),
			WriteTimeout: Duration(5 * time.Second),
		},
		Session: SessionConfig{
			IdleTTL:       Duration(30 * time.Minute),
			SweepInterval: Duration(time.Minute),
			ComparePolicy: compare.PolicyIgnore,
		},
		Security: SecurityConfig{
			RateLimit: 20,
			RateBurst: 40,
		},
		Email: EmailConfig{
			From: "Loja <noreply@loja.example>",
		},
		Perf: PerfConfig{
			SlowRequest: Duration(200 * time.Millisecond),
			SlowQuery:   Duration(50 * time.Millisecond),
			RingSize:    4096,
		},
		Outbox: OutboxConfig{
			Interval:  Duration(time.Minute),
			BaseDelay: Duration(30 * time.Second),
			MaxDelay:  Duration(30 * time.Minute),
		},
		Pricing: pricing.DefaultRules(),
	}
}

// Load builds the configuration. path names a TOML file; when empty the
// STOREFRONT_CONFIG variable is consulted. A missing file is not an error.
// POST: the returned Config has passed Validate
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Production reports whether the server runs in production mode.
func (c Config) Production() bool {
	return c.Env == "production"
}
