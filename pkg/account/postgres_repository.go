package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-useradmin/pkg/role"
)

const uniqueViolation = "23505"

const accountColumns = `id, organization_id, email, role, requires_password_setup, created_at, last_modified_at`

// PostgresAccountRepository implements AccountRepository on the accounts table.
type PostgresAccountRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresAccountRepository creates a PostgreSQL-based account repository.
// timeout bounds every statement; zero leaves the caller's deadline alone.
func NewPostgresAccountRepository(pool *pgxpool.Pool, timeout time.Duration) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool, timeout: timeout}
}

func (r *PostgresAccountRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var r int32
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Email, &r, &a.RequiresPasswordSetup, &a.CreatedAt, &a.LastModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	a.Role = role.Role(r)
	a.CreatedAt = a.CreatedAt.UTC()
	a.LastModifiedAt = a.LastModifiedAt.UTC()
	return a, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PostgresAccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *PostgresAccountRepository) FindAccounts(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE organization_id = $1 ORDER BY created_at, email`,
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	result := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *PostgresAccountRepository) CountAccounts(ctx context.Context, organizationID uuid.UUID) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM accounts WHERE organization_id = $1`, organizationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

func (r *PostgresAccountRepository) FindAccountByEmail(ctx context.Context, organizationID uuid.UUID, email string) (Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE organization_id = $1 AND lower(email) = lower($2)`,
		organizationID, email))
}

func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	created, err := scanAccount(r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, organization_id, email, role, requires_password_setup, created_at, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+accountColumns,
		uuid.New(), account.OrganizationID, account.Email, int32(account.Role), account.RequiresPasswordSetup))
	if err != nil {
		return Account{}, mapWriteError(err)
	}
	return created, nil
}

func (r *PostgresAccountRepository) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	updated, err := scanAccount(r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET email = $2, role = $3, requires_password_setup = $4, last_modified_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID, account.Email, int32(account.Role), account.RequiresPasswordSetup))
	if err != nil {
		return Account{}, mapWriteError(err)
	}
	return updated, nil
}

func (r *PostgresAccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, last_modified_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var hash *string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM accounts WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password hash: %w", err)
	}
	if hash == nil {
		return "", nil
	}
	return *hash, nil
}
