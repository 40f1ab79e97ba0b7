// Package credstore persists dashboard credentials and session state on
// disk. Entries carry an optional expiry, mirroring cookie max-age
// semantics: an expired entry reads back as absent.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Well-known entry keys.
const (
	KeyAccessToken       = "token"
	KeyRefreshToken      = "refresh_token"
	KeyUserSession       = "user_session"
	KeyOnboarding        = "onboarding_completed"
	KeySignupOnboarding  = "signup_onboarding_completed"
	DefaultStoreFilename = "credentials.json"
)

// Entry is a stored value with an optional expiry.
// A zero Expires means the entry never expires.
type Entry struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

// Store is a file-backed key/value store for credentials and session
// snapshots. All writes are atomic (temp file + rename) so a crashed
// process never leaves a torn credential file behind.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates a Store backed by the file at path, loading any existing
// entries. A missing file is not an error - the store starts empty.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	s := &Store{
		path:    path,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	return s, nil
}

// Set stores value under key with the given time-to-live.
// A ttl of zero stores the entry without an expiry.
func (s *Store) Set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Value: value}
	if ttl > 0 {
		entry.Expires = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return s.save()
}

// Get returns the value stored under key. Expired and missing entries
// both report ok=false.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		return "", false
	}
	return entry.Value, true
}

// Expiry returns the expiry time of the entry under key, if present and
// not already expired.
func (s *Store) Expiry(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		return time.Time{}, false
	}
	return entry.Expires, true
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Store) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return s.save()
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// save writes the entries to disk atomically. Caller must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set store permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential store: %w", err)
	}
	return nil
}
