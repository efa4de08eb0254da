package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already in use in organization")
)

// AccountRepository is the persistence boundary for accounts.
// Password values reaching the repository are already hashed.
type AccountRepository interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	FindAccounts(ctx context.Context, organizationID uuid.UUID) ([]Account, error)
	CountAccounts(ctx context.Context, organizationID uuid.UUID) (int, error)
	FindAccountByEmail(ctx context.Context, organizationID uuid.UUID, email string) (Account, error)

	// CreateAccount assigns the id and timestamps.
	CreateAccount(ctx context.Context, account Account) (Account, error)
	UpdateAccount(ctx context.Context, account Account) (Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error)
}
