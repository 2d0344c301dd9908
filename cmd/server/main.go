// Command server runs the VerdantMart identity gateway.
//
//	@title			VerdantMart Identity Gateway
//	@version		1.0
//	@description	Session-backed identity gateway: sign up, sign in, federated login, lockout and profile preferences.
//	@BasePath		/
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/verdantmart/identity-gateway/internal/api"
	"github.com/verdantmart/identity-gateway/internal/api/handler"
	"github.com/verdantmart/identity-gateway/internal/api/metrics"
	"github.com/verdantmart/identity-gateway/internal/api/middleware"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/core/service"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/config"
	mongostore "github.com/verdantmart/identity-gateway/internal/infrastructure/db/mongo"
	redisstore "github.com/verdantmart/identity-gateway/internal/infrastructure/db/redis"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/identity"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/identity/mock"
	"github.com/verdantmart/identity-gateway/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envFileErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "identity-gateway",
		Env:     cfg.Env,
	})
	if envFileErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	env, err := service.ResolveEnvironment(cfg.Env, cfg.Auth.Mode, cfg.Auth.PublicHost, cfg.Auth.PreviewHostSuffixes)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve environment")
	}
	if err := cfg.Validate(env.Mock()); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("mode", string(env.Mode)).Bool("preview", env.Preview).Msg("environment resolved")

	caps, checks, cleanup, err := buildCapabilities(ctx, cfg, env)
	if err != nil {
		log.Fatal().Err(err).Msg("wire identity backend")
	}
	defer cleanup()

	if cfg.Session.Secret == "" {
		cfg.Session.Secret = randomSecret()
		log.Warn().Msg("SESSION_SECRET not set; using an ephemeral key, sessions will not survive a restart")
	}

	registry := service.NewSessionRegistry(caps, cfg.Session.IdleTimeout, logger.Component("session_registry"))
	registry.SetMaxSessions(cfg.Session.MaxSessions)
	defer registry.Close()
	go registry.Run(ctx, cfg.Session.SweepInterval)

	if err := metrics.RegisterSessionGauge(prometheus.DefaultRegisterer, registry.Len); err != nil {
		log.Fatal().Err(err).Msg("register session gauge")
	}

	e := api.NewRouter(api.Deps{
		Registry: registry,
		Session: middleware.SessionConfig{
			Secret:    cfg.Session.Secret,
			Secure:    cfg.Session.SecureCookie,
			MintLimit: middleware.PerMinute(cfg.Session.MintPerMinute),
		},
		RateLimit:   middleware.PerMinute(cfg.RateLimit.AuthPerMinute),
		CORSOrigins: cfg.CORSOrigins,
		Demo:        mock.DemoCredentials(),
		Checks:      checks,
		Log:         logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("identity gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

// buildCapabilities wires the strategy set for the resolved environment. Live
// mode connects the document store and Redis; mock mode runs on in-memory
// fixtures with no external dependency.
func buildCapabilities(ctx context.Context, cfg *config.Config, env service.Environment) (service.Capabilities, []handler.DependencyCheck, func(), error) {
	if env.Mock() {
		fixtures := mock.DemoFixtures()
		dir := mock.NewDirectory(fixtures)
		backendLog := logger.Component("mock_backend")
		caps := service.MockCapabilities(
			env,
			func() ports.IdentityBackend { return mock.NewBackend(dir, backendLog) },
			mock.NewProfileTable(fixtures),
			mock.NewConsentAcks(),
			logger.Get(),
		)
		return caps, nil, func() {}, nil
	}

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return service.Capabilities{}, nil, nil, err
	}
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return service.Capabilities{}, nil, nil, err
	}
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return service.Capabilities{}, nil, nil, err
	}

	dirLog := logger.Component("identity_directory")
	dir := identity.NewDirectory(identity.DirectoryConfig{
		Credentials: mongostore.NewCredentialRepository(db),
		Resets:      mongostore.NewResetRepository(db),
		Verifier:    identity.NewProviderVerifier(cfg.Federated.Provider, cfg.Federated.Issuer, cfg.Federated.Secret),
		Notifier:    identity.NewLogNotifier(dirLog),
	}, dirLog)
	clientLog := logger.Component("identity_client")

	caps := service.LiveCapabilities(
		env,
		func() ports.IdentityBackend { return identity.NewClient(dir, clientLog) },
		mongostore.NewProfileRepository(db),
		redisstore.NewLockoutStore(rdb),
		service.LockoutPolicy{
			WarnAfter:   cfg.Lockout.WarnAfter,
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Duration:    cfg.Lockout.Duration,
		},
		redisstore.NewConsentAckStore(rdb),
		logger.Get(),
	)

	checks := []handler.DependencyCheck{
		{Name: "mongodb", Check: func(ctx context.Context) error { return mongostore.Ping(ctx, mongoClient) }},
		{Name: "redis", Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	}
	cleanup := func() {
		log := logger.Get()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
		if err := mongoClient.Disconnect(closeCtx); err != nil {
			log.Warn().Err(err).Msg("disconnect mongo")
		}
	}
	return caps, checks, cleanup, nil
}

// randomSecret returns an ephemeral HS256 key for mock deployments.
func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
