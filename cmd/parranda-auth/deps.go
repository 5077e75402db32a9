package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/parranda-auth/internal/adapters/driven/auth"
	"github.com/custodia-labs/parranda-auth/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/parranda-auth/internal/adapters/driven/redis"
	httpapi "github.com/custodia-labs/parranda-auth/internal/adapters/driving/http"
	"github.com/custodia-labs/parranda-auth/internal/config"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driving"
	"github.com/custodia-labs/parranda-auth/internal/core/services"
	"github.com/custodia-labs/parranda-auth/internal/metrics"
)

// app holds the wired service graph shared by every run mode.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *postgres.DB
	redis *goredis.Client // nil without REDIS_URL

	metrics *metrics.Metrics
	auth    driving.AuthService
	sweeper *services.Sweeper
	checks  map[string]httpapi.Pinger
}

// buildApp connects the backends and wires the services.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, checks: make(map[string]httpapi.Pinger)}

	logger.Info("connecting to postgres")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		ConnMaxIdleTime: cfg.DBConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.checks["postgres"] = db

	// Sessions and the sweep lock live in Redis when it is configured,
	// otherwise in PostgreSQL
	var sessionStore driven.SessionStore
	var lock driven.DistributedLock
	if cfg.RedisURL != "" {
		logger.Info("connecting to redis")
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		sessionStore = redisadapter.NewSessionStore(client)
		redisLock := redisadapter.NewLock(client)
		lock = redisLock
		a.checks["redis"] = redisLock
		logger.Info("using redis session store", "lock_owner", redisLock.OwnerID())
	} else {
		sessionStore = postgres.NewSessionStore(db)
		lock = postgres.NewAdvisoryLock(db)
		logger.Info("using postgres session store")
	}

	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("token service: %w", err)
	}

	a.metrics = metrics.New(metrics.NewRegistry())
	sessions := services.NewSessionManager(sessionStore, nil)

	a.auth = services.NewAuthService(services.AuthConfig{
		Users:    postgres.NewUserStore(db),
		Sessions: sessions,
		Hasher:   auth.NewPasswordHasher(cfg.BcryptCost),
		Tokens:   tokens,
		Metrics:  a.metrics,
		Logger:   logger,
	})

	a.sweeper = services.NewSweeper(services.SweeperConfig{
		Sessions:     sessions,
		Lock:         lock,
		Metrics:      a.metrics,
		Logger:       logger,
		Interval:     cfg.SessionSweepInterval,
		LockRequired: cfg.SweepLockRequired,
	})

	return a, nil
}

// server builds the HTTP server for the api and all modes.
func (a *app) server() *httpapi.Server {
	return httpapi.NewServer(httpapi.Config{
		Host:               a.cfg.HTTPHost,
		Port:               a.cfg.Port,
		Version:            version,
		CORSAllowedOrigins: a.cfg.CORSOrigins(),
		LoginRateLimit:     a.cfg.LoginRateLimit,
		TrustedProxies:     a.cfg.TrustedProxyList(),
		Logger:             a.logger,
		Metrics:            a.metrics,
		Checks:             a.checks,
	}, a.auth)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close postgres", "error", err)
		}
	}
}
