package account

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating account repositories
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// Timeout bounds each PostgreSQL statement
	Timeout time.Duration
	// DataDir is required for file-based repositories
	DataDir string
}

// NewAccountRepository creates a new account repository based on the persistence type
func NewAccountRepository(persistenceType string, config RepositoryConfig) (AccountRepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresAccountRepository(config.Pool, config.Timeout), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileAccountRepository(config.DataDir)
	case "inmem", "memory":
		return NewInMemoryAccountRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, inmem)", persistenceType)
	}
}
