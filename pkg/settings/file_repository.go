package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const settingsFileName = "settings.json"

// fileSettingsData is the on-disk layout: organization id -> flag key -> value
type fileSettingsData struct {
	Flags map[uuid.UUID]map[string]string `json:"flags"`
}

// FileRepository implements Repository using a JSON file in dataDir
type FileRepository struct {
	dataDir string
	data    *fileSettingsData
	mutex   sync.RWMutex
}

// NewFileRepository creates a file-based settings repository, loading any existing flags.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		data:    &fileSettingsData{Flags: make(map[uuid.UUID]map[string]string)},
	}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return repo, nil
}

func (r *FileRepository) GetFlag(ctx context.Context, organizationID uuid.UUID, key string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.data.Flags[organizationID][key], nil
}

func (r *FileRepository) SetFlag(ctx context.Context, organizationID uuid.UUID, key, value string) error {
	if key == "" {
		return fmt.Errorf("flag key cannot be empty")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, existed := r.data.Flags[organizationID][key]
	if value == "" {
		if !existed {
			return nil
		}
		delete(r.data.Flags[organizationID], key)
		if len(r.data.Flags[organizationID]) == 0 {
			delete(r.data.Flags, organizationID)
		}
	} else {
		if r.data.Flags[organizationID] == nil {
			r.data.Flags[organizationID] = make(map[string]string)
		}
		r.data.Flags[organizationID][key] = value
	}

	if err := r.save(); err != nil {
		// Rollback
		if existed {
			if r.data.Flags[organizationID] == nil {
				r.data.Flags[organizationID] = make(map[string]string)
			}
			r.data.Flags[organizationID][key] = previous
		} else {
			delete(r.data.Flags[organizationID], key)
			if len(r.data.Flags[organizationID]) == 0 {
				delete(r.data.Flags, organizationID)
			}
		}
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, settingsFileName)

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
	if r.data.Flags == nil {
		r.data.Flags = make(map[uuid.UUID]map[string]string)
	}
	return nil
}

// save writes the flags atomically
func (r *FileRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, settingsFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filepath.Join(r.dataDir, settingsFileName)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
