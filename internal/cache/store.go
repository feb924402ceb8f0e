package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileExtension = ".json"

// Store errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// FileStore keeps entries as one JSON file per key. It is safe for concurrent use
// within a process; concurrent processes may race on the same key, and the last
// write wins.
type FileStore struct {
	directory string
	enabled   bool
	ttl       time.Duration

	mu sync.RWMutex
}

// NewFileStore creates the store, creating directory if needed. A disabled store
// accepts every call and returns ErrDisabled.
func NewFileStore(directory string, enabled bool, ttl time.Duration) (*FileStore, error) {
	if !enabled {
		return &FileStore{}, nil
	}
	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := ValidateTTL(ttl); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{directory: directory, enabled: true, ttl: ttl}, nil
}

// Get returns the live entry for key. Expired entries are removed and reported as
// ErrExpired.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	path := s.pathFor(key)

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}

	if entry.IsExpired() {
		s.mu.Lock()
		_ = os.Remove(path)
		s.mu.Unlock()
		return nil, ErrExpired
	}
	return &entry, nil
}

// GetJSON decodes the live entry for key into v.
func (s *FileStore) GetJSON(key string, v any) error {
	entry, err := s.Get(key)
	if err != nil {
		return err
	}
	return entry.Decode(v)
}

// Set stores data under key with the store's TTL, replacing any existing entry.
func (s *FileStore) Set(key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	entryData, err := json.MarshalIndent(NewEntry(key, data, s.ttl), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(key)
	tmp := path + ".tmp"
	if writeErr := os.WriteFile(tmp, entryData, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tmp, path); renameErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}

// SetJSON marshals v and stores it under key.
func (s *FileStore) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.Set(key, data)
}

// Delete removes key. Missing keys are not an error.
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (s *FileStore) Clear() error {
	return s.sweep(func(*Entry) bool { return true })
}

// CleanupExpired removes expired entries and leaves unreadable files alone.
func (s *FileStore) CleanupExpired() error {
	return s.sweep(func(e *Entry) bool { return e != nil && e.IsExpired() })
}

// Count returns the number of entry files, expired ones included.
func (s *FileStore) Count() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Enabled reports whether the store is active.
func (s *FileStore) Enabled() bool { return s.enabled }

// Directory returns the cache directory.
func (s *FileStore) Directory() string { return s.directory }

// TTL returns the expiry applied by Set.
func (s *FileStore) TTL() time.Duration { return s.ttl }

// sweep deletes the entry files for which remove returns true. remove receives nil
// for files that cannot be parsed.
func (s *FileStore) sweep(remove func(*Entry) bool) error {
	if !s.enabled {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		var entry *Entry
		if data, readErr := os.ReadFile(path); readErr == nil {
			var e Entry
			if json.Unmarshal(data, &e) == nil {
				entry = &e
			}
		}
		if !remove(entry) {
			continue
		}
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(path), removeErr)
		}
	}
	return nil
}

func (s *FileStore) entryFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var files []string
	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExtension) {
			continue
		}
		files = append(files, filepath.Join(s.directory, d.Name()))
	}
	return files, nil
}

// pathFor hashes key so that entity refs with ':' and '/' map to safe file names.
func (s *FileStore) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.directory, hex.EncodeToString(sum[:])+fileExtension)
}
