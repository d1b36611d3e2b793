package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store provides persistence for sectioned settings such as the options bag.
type Store interface {
	// Load reads the settings from the backing medium
	Load() error

	// Save writes the settings to the backing medium
	Save() error

	// GetSection returns a copy of the data stored under sectionID. A missing
	// section yields an empty map.
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection replaces the data stored under sectionID
	SetSection(sectionID string, data map[string]interface{}) error
}

type sections map[string]map[string]interface{}

// FileStore keeps sections in one JSON object on disk, keyed by section id.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data sections
}

// NewFileStore opens the store at path and reads it. A missing file is an
// empty store. If path is empty, defaults to ~/.stylebot/options.json
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".stylebot", "options.json")
	}

	store := &FileStore{path: path, data: sections{}}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}
	return store, nil
}

// Load replaces the in-memory sections with the file contents.
func (s *FileStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		raw = nil
	} else if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	loaded := sections{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &loaded); err != nil {
			return fmt.Errorf("failed to decode settings file: %w", err)
		}
	}

	s.mu.Lock()
	s.data = loaded
	s.mu.Unlock()
	return nil
}

// Save writes every section. Readers of the file see either the old or the
// new contents, never a partial write.
func (s *FileStore) Save() error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// GetSection returns a copy of a section.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.data[sectionID]), nil
}

// SetSection stores a copy of data under sectionID. It is not written until
// Save.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = copySection(data)
	return nil
}

// Path returns the settings file location.
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore is a Store that never touches disk. Save is a no-op.
type MemoryStore struct {
	mu   sync.RWMutex
	data sections
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: sections{}}
}

func (m *MemoryStore) Load() error { return nil }
func (m *MemoryStore) Save() error { return nil }

func (m *MemoryStore) GetSection(sectionID string) (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySection(m.data[sectionID]), nil
}

func (m *MemoryStore) SetSection(sectionID string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sectionID] = copySection(data)
	return nil
}

func copySection(data map[string]interface{}) map[string]interface{} {
	dup := make(map[string]interface{}, len(data))
	for k, v := range data {
		dup[k] = v
	}
	return dup
}
