package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"IDM_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"IDM_PG_PORT" env-default:"5432"`
	Database string `env:"IDM_PG_DATABASE" env-default:"useradmin_db"`
	User     string `env:"IDM_PG_USER" env-default:"useradmin"`
	Password string `env:"IDM_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"IDM_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

func (d DatabaseConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("IDM_PG_HOST", d.Host),
			RequireValidPort("IDM_PG_PORT", d.Port),
			RequireNonEmpty("IDM_PG_DATABASE", d.Database),
			RequireNonEmpty("IDM_PG_USER", d.User),
		)
	})
}

// Persistence backends understood by account.NewAccountRepository.
const (
	PersistencePostgres = "postgres"
	PersistenceFile     = "file"
	PersistenceInMemory = "inmem"
)

// PersistenceConfig selects where accounts are stored and bounds every storage call.
type PersistenceConfig struct {
	Type    string        `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir string        `env:"PERSISTENCE_DATA_DIR" env-default:"./data"`
	Timeout time.Duration `env:"PERSISTENCE_TIMEOUT" env-default:"5s"`
	// MigrateOnStart applies the embedded migrations before serving (postgres only)
	MigrateOnStart bool `env:"PERSISTENCE_MIGRATE" env-default:"true"`
}

func (p PersistenceConfig) Validate() error {
	return Validate(func() ValidationErrors {
		errs := CollectErrors(
			RequireOneOf("PERSISTENCE_TYPE", p.Type, []string{PersistencePostgres, PersistenceFile, PersistenceInMemory}),
			RequirePositiveDuration("PERSISTENCE_TIMEOUT", p.Timeout),
		)
		if p.Type == PersistenceFile {
			errs = append(errs, CollectErrors(RequireNonEmpty("PERSISTENCE_DATA_DIR", p.DataDir))...)
		}
		return errs
	})
}

// UsesPostgres reports whether a database connection is needed.
func (p PersistenceConfig) UsesPostgres() bool {
	return p.Type == PersistencePostgres
}
