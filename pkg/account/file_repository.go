package account

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const accountsFileName = "accounts.json"

// fileAccountData represents all account data stored in the file
type fileAccountData struct {
	Accounts map[uuid.UUID]storedAccount `json:"accounts"` // keyed by account ID
}

// FileAccountRepository implements AccountRepository using a JSON file in dataDir
type FileAccountRepository struct {
	dataDir string
	data    *fileAccountData
	mutex   sync.RWMutex
}

// NewFileAccountRepository creates a new file-based account repository
func NewFileAccountRepository(dataDir string) (*FileAccountRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileAccountRepository{
		dataDir: dataDir,
		data: &fileAccountData{
			Accounts: make(map[uuid.UUID]storedAccount),
		},
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileAccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored, ok := r.data.Accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return stored.Account, nil
}

func (r *FileAccountRepository) FindAccounts(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return collectAccounts(r.data.Accounts, organizationID), nil
}

func (r *FileAccountRepository) CountAccounts(ctx context.Context, organizationID uuid.UUID) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(collectAccounts(r.data.Accounts, organizationID)), nil
}

func (r *FileAccountRepository) FindAccountByEmail(ctx context.Context, organizationID uuid.UUID, email string) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if stored, ok := findByEmail(r.data.Accounts, organizationID, email); ok {
		return stored.Account, nil
	}
	return Account{}, ErrAccountNotFound
}

func (r *FileAccountRepository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, taken := findByEmail(r.data.Accounts, account.OrganizationID, account.Email); taken {
		return Account{}, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	account.ID = uuid.New()
	account.CreatedAt = now
	account.LastModifiedAt = now
	r.data.Accounts[account.ID] = storedAccount{Account: account}

	if err := r.save(); err != nil {
		// Rollback
		delete(r.data.Accounts, account.ID)
		return Account{}, fmt.Errorf("failed to save: %w", err)
	}
	return account, nil
}

func (r *FileAccountRepository) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, ok := r.data.Accounts[account.ID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if other, taken := findByEmail(r.data.Accounts, account.OrganizationID, account.Email); taken && other.Account.ID != account.ID {
		return Account{}, ErrDuplicateEmail
	}

	updated := previous
	updated.Account = mergeUpdate(previous.Account, account)
	r.data.Accounts[account.ID] = updated

	if err := r.save(); err != nil {
		r.data.Accounts[account.ID] = previous
		return Account{}, fmt.Errorf("failed to save: %w", err)
	}
	return updated.Account, nil
}

func (r *FileAccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, ok := r.data.Accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(r.data.Accounts, id)

	if err := r.save(); err != nil {
		r.data.Accounts[id] = previous
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileAccountRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, ok := r.data.Accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	updated := previous
	updated.PasswordHash = passwordHash
	updated.Account.LastModifiedAt = time.Now().UTC()
	r.data.Accounts[id] = updated

	if err := r.save(); err != nil {
		r.data.Accounts[id] = previous
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileAccountRepository) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored, ok := r.data.Accounts[id]
	if !ok {
		return "", ErrAccountNotFound
	}
	return stored.PasswordHash, nil
}

// load reads account data from file
func (r *FileAccountRepository) load() error {
	filePath := filepath.Join(r.dataDir, accountsFileName)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, r.data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if r.data.Accounts == nil {
		r.data.Accounts = make(map[uuid.UUID]storedAccount)
	}
	return nil
}

// save writes account data to file atomically
func (r *FileAccountRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, accountsFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, accountsFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
