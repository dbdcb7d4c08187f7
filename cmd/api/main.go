// Package main is the entrypoint for the koinonia API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/koinonia/koinonia/internal/auth"
	"github.com/koinonia/koinonia/internal/cache"
	"github.com/koinonia/koinonia/internal/config"
	"github.com/koinonia/koinonia/internal/directory"
	"github.com/koinonia/koinonia/internal/metrics"
	"github.com/koinonia/koinonia/internal/repository"
	"github.com/koinonia/koinonia/internal/server"
	"github.com/koinonia/koinonia/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheus(metrics.PrometheusOptions{Registerer: registry})
	if err != nil {
		return err
	}

	// Database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errConnect
	}
	logger.Info("connected to database")

	// Cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errConnect
	}
	logger.Info("connected to Redis")

	// Directory
	pco, err := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.Token,
		directory.WithTimeout(cfg.Directory.Timeout),
		directory.WithObserver(recorder),
	)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}
	people := directory.NewCachedClient(pco,
		cache.NewDirectoryCache(cacheClient, cfg.Directory.LookupCacheTTL), logger)

	// Credentials
	hasher := auth.NewHasher(auth.Argon2Params{
		Time:    cfg.Hashing.Time,
		Memory:  cfg.Hashing.Memory,
		Threads: cfg.Hashing.Threads,
	})
	issuer, err := auth.NewSessionIssuer(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}
	sessions := service.NewSessionManager(issuer, cacheClient, cfg.Session.RefreshTTL, logger)

	// Services
	deps := routerDeps{
		cfg:         cfg,
		logger:      logger,
		recorder:    recorder,
		gatherer:    registry,
		db:          repo,
		cache:       cacheClient,
		limiter:     cacheClient,
		sessions:    sessions,
		registrar:   service.NewRegistrationService(repo, people, hasher, sessions, recorder, logger),
		auth:        service.NewAuthService(repo, hasher, sessions, cacheClient, recorder, logger),
		users:       service.NewUserService(repo),
		communities: service.NewCommunityService(repo),
		sermons:     service.NewPreachingService(repo),
		tags:        service.NewTagService(repo),
		version:     version,
	}

	srv := server.New(newRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"pco_base_url", redactURL(cfg.Directory.BaseURL),
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "koinonia")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
