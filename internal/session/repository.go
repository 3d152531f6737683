package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Repository persists string values under string keys.
type Repository interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
	Delete(key string) error
}

// FileRepository keeps all keys in one JSON object on disk. The file is
// private to the user since it holds credentials.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) Load(key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values, err := r.loadUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (r *FileRepository) Save(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	values, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	values[key] = value
	return r.saveUnlocked(values)
}

func (r *FileRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	values, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.saveUnlocked(values)
}

// loadUnlocked treats an empty or malformed file as an empty store.
func (r *FileRepository) loadUnlocked() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return make(map[string]string), nil
	}
	return values, nil
}

func (r *FileRepository) saveUnlocked(values map[string]string) error {
	f, err := os.OpenFile(r.path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	return nil
}

// MemoryRepository is a process-local Repository.
type MemoryRepository struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]string)}
}

func (m *MemoryRepository) Load(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryRepository) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryRepository) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
