package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores flags in the org_settings table.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresRepository creates a settings repository; timeout bounds every query (0 disables).
func NewPostgresRepository(pool *pgxpool.Pool, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{pool: pool, timeout: timeout}
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepository) GetFlag(ctx context.Context, organizationID uuid.UUID, key string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM org_settings WHERE organization_id = $1 AND key = $2`,
		organizationID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read flag %s: %w", key, err)
	}
	return value, nil
}

func (r *PostgresRepository) SetFlag(ctx context.Context, organizationID uuid.UUID, key, value string) error {
	if key == "" {
		return fmt.Errorf("flag key cannot be empty")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if value == "" {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM org_settings WHERE organization_id = $1 AND key = $2`,
			organizationID, key)
		if err != nil {
			return fmt.Errorf("failed to clear flag %s: %w", key, err)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO org_settings (organization_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (organization_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		organizationID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write flag %s: %w", key, err)
	}
	return nil
}
