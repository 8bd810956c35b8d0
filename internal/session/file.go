package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type fileState struct {
	Scopes map[string]map[string]string `yaml:"scopes"`
}

// FileBackend stores slots in a YAML file. The terminal client uses it as
// its durable storage.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend builds a FileBackend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// DefaultStatePath returns ~/.config/skinwise/state.yaml (or the OS equivalent).
func DefaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "skinwise", "state.yaml"), nil
}

// Scope implements Backend.
func (b *FileBackend) Scope(id string) Storage {
	return &fileStorage{backend: b, id: id}
}

func (b *FileBackend) load() (*fileState, error) {
	state := &fileState{Scopes: map[string]map[string]string{}}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state.Scopes == nil {
		state.Scopes = map[string]map[string]string{}
	}
	return state, nil
}

func (b *FileBackend) save(state *fileState) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, b.path)
}

type fileStorage struct {
	backend *FileBackend
	id      string
}

func (s *fileStorage) Get(key string) (string, bool) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	state, err := s.backend.load()
	if err != nil {
		return "", false
	}
	value, ok := state.Scopes[s.id][key]
	return value, ok
}

func (s *fileStorage) Set(key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	state, err := s.backend.load()
	if err != nil {
		return err
	}
	if state.Scopes[s.id] == nil {
		state.Scopes[s.id] = map[string]string{}
	}
	state.Scopes[s.id][key] = value
	return s.backend.save(state)
}

func (s *fileStorage) Remove(key string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	state, err := s.backend.load()
	if err != nil {
		return err
	}
	if _, ok := state.Scopes[s.id][key]; !ok {
		return nil
	}
	delete(state.Scopes[s.id], key)
	if len(state.Scopes[s.id]) == 0 {
		delete(state.Scopes, s.id)
	}
	return s.backend.save(state)
}
