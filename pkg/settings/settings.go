// Package settings reads per-organization flags such as the seat quota lift.
package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Repository is the settings boundary. A missing flag reads as the empty string.
type Repository interface {
	GetFlag(ctx context.Context, organizationID uuid.UUID, key string) (string, error)
	SetFlag(ctx context.Context, organizationID uuid.UUID, key, value string) error
}

type flagKey struct {
	organizationID uuid.UUID
	key            string
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[flagKey]string
}

// NewInMemoryRepository creates a new in-memory settings repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{flags: make(map[flagKey]string)}
}

func (r *InMemoryRepository) GetFlag(ctx context.Context, organizationID uuid.UUID, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[flagKey{organizationID, key}], nil
}

func (r *InMemoryRepository) SetFlag(ctx context.Context, organizationID uuid.UUID, key, value string) error {
	if key == "" {
		return fmt.Errorf("flag key cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == "" {
		delete(r.flags, flagKey{organizationID, key})
		return nil
	}
	r.flags[flagKey{organizationID, key}] = value
	return nil
}
