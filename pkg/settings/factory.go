package settings

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig mirrors the account repository configuration so both stores share one
// persistence setting.
type RepositoryConfig struct {
	Pool    *pgxpool.Pool
	Timeout time.Duration
	DataDir string
}

// NewRepository creates the settings repository for a persistence type.
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres settings repository")
		}
		return NewPostgresRepository(config.Pool, config.Timeout), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file settings repository")
		}
		return NewFileRepository(config.DataDir)
	case "inmem", "memory":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, inmem)", persistenceType)
	}
}
