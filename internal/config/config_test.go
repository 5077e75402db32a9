package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every key Load reads. Viper ignores empty variables.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_HOST", "PORT", "DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME", "REDIS_URL", "JWT_SECRET",
		"JWT_ISSUER", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL", "BCRYPT_COST",
		"SESSION_SWEEP_ENABLED", "SESSION_SWEEP_INTERVAL", "SWEEP_LOCK_REQUIRED",
		"LOGIN_RATE_LIMIT", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES", "LOG_LEVEL", "LOG_FORMAT", "APP_ENV",
	} {
		t.Setenv(key, "")
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parranda")

	cfg, err := load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPHost != "0.0.0.0" || cfg.Port != 8080 {
		t.Errorf("listen = %s:%d, want 0.0.0.0:8080", cfg.HTTPHost, cfg.Port)
	}
	if cfg.JWTIssuer != "parranda-auth" {
		t.Errorf("JWTIssuer = %q, want parranda-auth", cfg.JWTIssuer)
	}
	if cfg.JWTAccessTTL != 60*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 60m", cfg.JWTAccessTTL)
	}
	if cfg.JWTRefreshTTL != 30*24*time.Hour {
		t.Errorf("JWTRefreshTTL = %v, want 720h", cfg.JWTRefreshTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.SessionSweepEnabled || cfg.SessionSweepInterval != time.Hour {
		t.Errorf("sweep = %v every %v, want enabled every 1h", cfg.SessionSweepEnabled, cfg.SessionSweepInterval)
	}
	if cfg.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, want 10", cfg.LoginRateLimit)
	}
	if cfg.DBMaxOpenConns != 25 || cfg.DBConnLifetime != 5*time.Minute {
		t.Errorf("pool = %d/%v, want 25/5m", cfg.DBMaxOpenConns, cfg.DBConnLifetime)
	}
	if !cfg.UsingDevSecret() {
		t.Error("expected the development secret outside production")
	}
	if cfg.CORSOrigins() != nil {
		t.Errorf("CORSOrigins = %v, want none", cfg.CORSOrigins())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parranda")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "an-operator-supplied-secret-of-32-bytes")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SESSION_SWEEP_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.UsingDevSecret() {
		t.Error("expected the supplied secret")
	}
	if cfg.JWTAccessTTL != 15*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 15m", cfg.JWTAccessTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.SessionSweepEnabled {
		t.Error("expected sweeping disabled")
	}
	if got := cfg.CORSOrigins(); len(got) != 2 || got[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", got)
	}
	if level, _ := cfg.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "DATABASE_URL=postgres://file/parranda\nREDIS_URL=redis://localhost:6379/0\nJWT_ISSUER=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_ISSUER", "from-env")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/parranda" || cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("file values not read: %+v", cfg)
	}
	if cfg.JWTIssuer != "from-env" {
		t.Errorf("JWTIssuer = %q, env should override the file", cfg.JWTIssuer)
	}
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "DATABASE_URL=postgres://file/parranda\nthis line is broken\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := load(path); err == nil {
		t.Fatal("expected a malformed env file to be reported")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parranda")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.0.2.10 ")

	cfg, err := load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.TrustedProxyList()
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.0.2.10" {
		t.Errorf("TrustedProxyList() = %v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"dev secret in production", map[string]string{"APP_ENV": "production"}},
		{"explicit dev secret in production", map[string]string{"APP_ENV": "production", "JWT_SECRET": DevJWTSecret}},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "32"}},
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"zero access ttl", map[string]string{"JWT_ACCESS_TTL": "0s"}},
		{"zero sweep interval", map[string]string{"SESSION_SWEEP_INTERVAL": "0s"}},
		{"negative rate limit", map[string]string{"LOGIN_RATE_LIMIT": "-1"}},
		{"bad port", map[string]string{"PORT": "70000"}},
		{"bad trusted proxy", map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8, proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/parranda")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := load(noEnvFile(t)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parranda")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("JWT_SECRET", "an-operator-supplied-secret-of-32-bytes")

	cfg, err := load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("APP_ENV should match case-insensitively")
	}
}
