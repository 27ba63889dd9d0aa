// Package localstore persists small device-local JSON blobs, standing in for
// the browser storage a web client would use. Each key maps to one file.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Well-known keys shared across the store layer.
const (
	KeyCart     = "varmina_cart"
	KeyDarkMode = "varmina_dark_mode"
	KeySession  = "varmina_session"
)

var errKeyRequired = errors.New("localstore: key is required")

// Store reads and writes raw blobs by key. Missing keys report ok=false;
// implementations treat unreadable data the same as missing data.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

// GetJSON decodes the blob stored under key into out. Absent or corrupt
// blobs leave out untouched and report false.
func GetJSON(s Store, key string, out any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// SetJSON encodes value and stores it under key.
func SetJSON(s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: encode %q: %w", key, err)
	}
	return s.Set(key, raw)
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileStore keeps each key in its own file under a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("localstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, keySanitizer.ReplaceAllString(key, "_")+".json")
}

// Get reads the blob for key. Any read failure reports the key as absent.
func (s *FileStore) Get(key string) ([]byte, bool) {
	if strings.TrimSpace(key) == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Set writes the blob for key via a rename so readers never observe a
// partially written file.
func (s *FileStore) Set(key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("localstore: write %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: write %q: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: write %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob for key. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localstore: delete %q: %w", key, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true
}

func (s *MemStore) Set(key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make([]byte, len(value))
	copy(raw, value)
	s.values[key] = raw
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
