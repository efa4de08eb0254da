package account

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedAccount struct {
	Account      Account `json:"account"`
	PasswordHash string  `json:"password_hash,omitempty"`
}

// InMemoryAccountRepository implements AccountRepository using in-memory storage
type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]storedAccount
}

// NewInMemoryAccountRepository creates a new in-memory account repository
func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{
		accounts: make(map[uuid.UUID]storedAccount),
	}
}

func (r *InMemoryAccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return stored.Account, nil
}

func (r *InMemoryAccountRepository) FindAccounts(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collectAccounts(r.accounts, organizationID), nil
}

func (r *InMemoryAccountRepository) CountAccounts(ctx context.Context, organizationID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, stored := range r.accounts {
		if stored.Account.OrganizationID == organizationID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryAccountRepository) FindAccountByEmail(ctx context.Context, organizationID uuid.UUID, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if stored, ok := findByEmail(r.accounts, organizationID, email); ok {
		return stored.Account, nil
	}
	return Account{}, ErrAccountNotFound
}

func (r *InMemoryAccountRepository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := findByEmail(r.accounts, account.OrganizationID, account.Email); taken {
		return Account{}, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	account.ID = uuid.New()
	account.CreatedAt = now
	account.LastModifiedAt = now
	r.accounts[account.ID] = storedAccount{Account: account}
	return account, nil
}

func (r *InMemoryAccountRepository) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if other, taken := findByEmail(r.accounts, account.OrganizationID, account.Email); taken && other.Account.ID != account.ID {
		return Account{}, ErrDuplicateEmail
	}

	stored.Account = mergeUpdate(stored.Account, account)
	r.accounts[account.ID] = stored
	return stored.Account, nil
}

func (r *InMemoryAccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *InMemoryAccountRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	stored.PasswordHash = passwordHash
	stored.Account.LastModifiedAt = time.Now().UTC()
	r.accounts[id] = stored
	return nil
}

func (r *InMemoryAccountRepository) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.accounts[id]
	if !ok {
		return "", ErrAccountNotFound
	}
	return stored.PasswordHash, nil
}

// mergeUpdate applies the mutable fields of next onto current.
func mergeUpdate(current, next Account) Account {
	current.Email = next.Email
	current.Role = next.Role
	current.RequiresPasswordSetup = next.RequiresPasswordSetup
	current.LastModifiedAt = time.Now().UTC()
	return current
}

func findByEmail(accounts map[uuid.UUID]storedAccount, organizationID uuid.UUID, email string) (storedAccount, bool) {
	for _, stored := range accounts {
		if stored.Account.OrganizationID == organizationID && strings.EqualFold(stored.Account.Email, email) {
			return stored, true
		}
	}
	return storedAccount{}, false
}

// collectAccounts returns the organization's accounts ordered by creation time, then email.
func collectAccounts(accounts map[uuid.UUID]storedAccount, organizationID uuid.UUID) []Account {
	result := make([]Account, 0)
	for _, stored := range accounts {
		if stored.Account.OrganizationID == organizationID {
			result = append(result, stored.Account)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Email < result[j].Email
	})
	return result
}
