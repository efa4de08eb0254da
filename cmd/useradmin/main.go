package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-useradmin/pkg/account"
	accountapi "github.com/tendant/simple-useradmin/pkg/account/api"
	"github.com/tendant/simple-useradmin/pkg/bootstrap"
	"github.com/tendant/simple-useradmin/pkg/config"
	"github.com/tendant/simple-useradmin/pkg/dbmigrate"
	"github.com/tendant/simple-useradmin/pkg/metrics"
	"github.com/tendant/simple-useradmin/pkg/notification"
	"github.com/tendant/simple-useradmin/pkg/ratelimit"
	"github.com/tendant/simple-useradmin/pkg/settings"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	Database    config.DatabaseConfig
	Persistence config.PersistenceConfig
	Quota       config.QuotaConfig
	JWT         config.JWTConfig
	Email       config.EmailConfig
	RateLimit   config.RateLimitConfig
	Bootstrap   config.BootstrapConfig
	AppConfig   app.AppConfig
}

func (c Config) Validate() error {
	return config.Validate(
		func() config.ValidationErrors { return config.AsValidationErrors(c.Persistence.Validate()) },
		func() config.ValidationErrors {
			if !c.Persistence.UsesPostgres() {
				return nil
			}
			return config.AsValidationErrors(c.Database.Validate())
		},
		func() config.ValidationErrors { return config.AsValidationErrors(c.Quota.Validate()) },
		func() config.ValidationErrors { return config.AsValidationErrors(c.JWT.Validate()) },
		func() config.ValidationErrors { return config.AsValidationErrors(c.Email.Validate()) },
		func() config.ValidationErrors { return config.AsValidationErrors(c.RateLimit.Validate()) },
		func() config.ValidationErrors { return config.AsValidationErrors(c.Bootstrap.Validate()) },
	)
}

func main() {
	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	repoConfig := account.RepositoryConfig{
		Timeout: cfg.Persistence.Timeout,
		DataDir: cfg.Persistence.DataDir,
	}

	if cfg.Persistence.UsesPostgres() {
		dbURL := cfg.Database.ToDatabaseURL()
		if cfg.Persistence.MigrateOnStart {
			if err := dbmigrate.Up(dbURL); err != nil {
				slog.Error("Failed to migrate database", "database", cfg.Database.Database, "err", err)
				os.Exit(1)
			}
		}
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("Failed to connect to database",
				"host", cfg.Database.Host,
				"port", cfg.Database.Port,
				"database", cfg.Database.Database,
				"schema", cfg.Database.Schema,
				"err", err)
			os.Exit(1)
		}
		defer pool.Close()
		repoConfig.Pool = pool
		slog.Info("Database connected", "database", cfg.Database.Database, "schema", cfg.Database.Schema)
	}

	repo, err := account.NewAccountRepository(cfg.Persistence.Type, repoConfig)
	if err != nil {
		slog.Error("Failed to create account repository", "type", cfg.Persistence.Type, "err", err)
		os.Exit(1)
	}

	settingsRepo, err := settings.NewRepository(cfg.Persistence.Type, settings.RepositoryConfig{
		Pool:    repoConfig.Pool,
		Timeout: repoConfig.Timeout,
		DataDir: repoConfig.DataDir,
	})
	if err != nil {
		slog.Error("Failed to create settings repository", "type", cfg.Persistence.Type, "err", err)
		os.Exit(1)
	}

	opts := []account.Option{
		account.WithQuotaConfig(cfg.Quota.ToQuotaConfig()),
		account.WithMetrics(metrics.NewRecorder()),
	}
	if cfg.Email.Enabled {
		notificationManager, err := notification.NewNotificationManagerWithOptions(
			cfg.Email.BaseURL,
			notification.WithSMTP(cfg.Email.ToSMTPConfig()),
			notification.WithDefaultTemplates(),
		)
		if err != nil {
			slog.Error("Failed to create notification manager", "err", err)
			os.Exit(1)
		}
		opts = append(opts, account.WithNotifier(notificationManager))
	}
	accountService := account.NewAccountService(repo, settingsRepo, opts...)

	if cfg.Bootstrap.Enabled() {
		result, err := bootstrap.BootstrapOrgAdmin(context.Background(), bootstrap.OrgAdminBootstrapConfig{
			OrganizationID: uuid.MustParse(cfg.Bootstrap.OrganizationID),
			Email:          cfg.Bootstrap.AdminEmail,
			Password:       cfg.Bootstrap.AdminPassword,
			Role:           cfg.Bootstrap.Role(),
			Service:        accountService,
		})
		if err != nil {
			slog.Error("Failed to bootstrap organization admin", "err", err)
			os.Exit(1)
		}
		bootstrap.LogBootstrapSummary(result)
		bootstrap.PrintBootstrapResult(os.Stdout, result)
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	var writeLimiter func(next http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewMiddleware(cfg.RateLimit.ToMiddlewareConfig())
		defer limiter.Stop()
		writeLimiter = limiter.Handler
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", metrics.Handler())

	accountHandle := accountapi.NewHandle(accountService, accountapi.WithIssuer(cfg.JWT.Issuer))
	server.R.Group(func(r chi.Router) {
		r.Use(metrics.InstrumentHandler)
		r.Mount("/api/admin/users", accountHandle.Routes(tokenAuth, writeLimiter))
	})

	slog.Info("User administration service ready",
		"persistence", cfg.Persistence.Type,
		"quota_default_max", cfg.Quota.DefaultMaximum,
		"email_enabled", cfg.Email.Enabled,
		"ratelimit_enabled", cfg.RateLimit.Enabled)

	server.Run()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "err", err)
	}
}
