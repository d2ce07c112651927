// Package localstate persists the small amount of client-side state that
// survives restarts: the demo session flag, the remote auth token and the
// last used listing filters.
package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Well-known keys.
const (
	KeyDemoSession    = "lanceo_demo_session"
	KeyAuthToken      = "lanceo_auth_token"
	KeyProjectFilters = "lanceo_project_filters"
)

// DemoActive is the value stored under KeyDemoSession while demo mode is on.
const DemoActive = "active"

// Store is a string key/value store with synchronous reads.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// File is a Store backed by a JSON object on disk. Every write rewrites the
// file through a temporary sibling and a rename.
type File struct {
	path string
	mem  *Memory
	mu   sync.Mutex
}

// OpenFile loads path, creating parent directories as needed. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, mem: NewMemory()}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("localstate: create dir: %w", err)
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("localstate: read %s: %w", path, err)
	}

	if len(b) > 0 {
		if err := json.Unmarshal(b, &f.mem.values); err != nil {
			return nil, fmt.Errorf("localstate: decode %s: %w", path, err)
		}
	}
	// A file holding "null" decodes to a nil map.
	if f.mem.values == nil {
		f.mem.values = make(map[string]string)
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) { return f.mem.Get(key) }

// Set stores value and rewrites the file. When the write fails the previous
// value is restored.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.mem.Get(key)
	_ = f.mem.Set(key, value)
	if err := f.flush(); err != nil {
		f.restore(key, prev, had)
		return err
	}
	return nil
}

// Remove deletes key and rewrites the file. When the write fails the key is kept.
func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.mem.Get(key)
	if !had {
		return nil
	}
	_ = f.mem.Remove(key)
	if err := f.flush(); err != nil {
		f.restore(key, prev, had)
		return err
	}
	return nil
}

func (f *File) restore(key, prev string, had bool) {
	if had {
		_ = f.mem.Set(key, prev)
		return
	}
	_ = f.mem.Remove(key)
}

func (f *File) flush() error {
	f.mem.mu.RLock()
	b, err := json.MarshalIndent(f.mem.values, "", "  ")
	f.mem.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("localstate: encode: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("localstate: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("localstate: rename: %w", err)
	}
	return nil
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("localstate: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstate: encode %s: %w", key, err)
	}
	return s.Set(key, string(b))
}
