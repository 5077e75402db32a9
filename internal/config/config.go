// Package config loads service configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset outside production.
const DevJWTSecret = "parranda-development-secret-do-not-use"

// EnvProduction is the APP_ENV value that enables production checks.
const EnvProduction = "production"

// Config holds application configuration loaded from the environment.
type Config struct {
	HTTPHost string `mapstructure:"HTTP_HOST"`
	Port     int    `mapstructure:"PORT"`

	// DatabaseURL is the Postgres DSN for identities and, without Redis, sessions.
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnIdleTime time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	// RedisURL, when set, moves sessions and the sweep lock to Redis.
	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	BcryptCost    int           `mapstructure:"BCRYPT_COST"`

	SessionSweepEnabled  bool          `mapstructure:"SESSION_SWEEP_ENABLED"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	SweepLockRequired    bool          `mapstructure:"SWEEP_LOCK_REQUIRED"`

	// LoginRateLimit is register/login/refresh requests per minute per IP; 0 disables.
	LoginRateLimit     int    `mapstructure:"LOGIN_RATE_LIMIT"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// TrustedProxies is a comma-separated list of proxy addresses or CIDR
	// prefixes whose X-Forwarded-For headers are believed.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	Env       string `mapstructure:"APP_ENV"`
}

// Load reads .env from the working directory if present, then the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return load(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("config: read %s: %w", envFile, err)
	}

	v.AutomaticEnv()

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "1m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "parranda-auth")
	v.SetDefault("JWT_ACCESS_TTL", "60m")
	v.SetDefault("JWT_REFRESH_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_SWEEP_ENABLED", true)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_LOCK_REQUIRED", false)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values and fills the development secret where allowed.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}

	if c.JWTSecret == "" || c.JWTSecret == DevJWTSecret {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET must be set to a non-default value when APP_ENV=production")
		}
		c.JWTSecret = DevJWTSecret
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("config: JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.SessionSweepEnabled && c.SessionSweepInterval <= 0 {
		return errors.New("config: SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.LoginRateLimit < 0 {
		return errors.New("config: LOGIN_RATE_LIMIT must not be negative")
	}

	for _, entry := range c.TrustedProxyList() {
		if !validProxy(entry) {
			return fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP address or CIDR prefix", entry)
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// UsingDevSecret reports whether tokens are signed with DevJWTSecret.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// CORSOrigins returns the allowed origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxyList returns the TRUSTED_PROXIES entries.
func (c *Config) TrustedProxyList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validProxy(entry string) bool {
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

// isNotFound reports whether a ReadInConfig error only means there is no
// env file to read.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
