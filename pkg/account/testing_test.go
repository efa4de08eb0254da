package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// countingRepository wraps a repository and records every call by method name.
type countingRepository struct {
	AccountRepository
	mu    sync.Mutex
	calls map[string]int
}

func newCountingRepository(inner AccountRepository) *countingRepository {
	return &countingRepository{AccountRepository: inner, calls: map[string]int{}}
}

func (c *countingRepository) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *countingRepository) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingRepository) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *countingRepository) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = map[string]int{}
}

func (c *countingRepository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	c.record("GetAccount")
	return c.AccountRepository.GetAccount(ctx, id)
}

func (c *countingRepository) FindAccounts(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	c.record("FindAccounts")
	return c.AccountRepository.FindAccounts(ctx, organizationID)
}

func (c *countingRepository) CountAccounts(ctx context.Context, organizationID uuid.UUID) (int, error) {
	c.record("CountAccounts")
	return c.AccountRepository.CountAccounts(ctx, organizationID)
}

func (c *countingRepository) FindAccountByEmail(ctx context.Context, organizationID uuid.UUID, email string) (Account, error) {
	c.record("FindAccountByEmail")
	return c.AccountRepository.FindAccountByEmail(ctx, organizationID, email)
}

func (c *countingRepository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	c.record("CreateAccount")
	return c.AccountRepository.CreateAccount(ctx, account)
}

func (c *countingRepository) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	c.record("UpdateAccount")
	return c.AccountRepository.UpdateAccount(ctx, account)
}

func (c *countingRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	c.record("DeleteAccount")
	return c.AccountRepository.DeleteAccount(ctx, id)
}

func (c *countingRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	c.record("SetPassword")
	return c.AccountRepository.SetPassword(ctx, id, passwordHash)
}

type recordedOperation struct {
	operation string
	outcome   string
}

type fakeMetrics struct {
	mu  sync.Mutex
	ops []recordedOperation
}

func (f *fakeMetrics) RecordAccountOperation(operation, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, recordedOperation{operation, outcome})
}
