// Package localstore is a small JSON key-value store on the local filesystem.
// It backs the persisted session snapshot and the per-scope content cache
// entries. Every write replaces the whole record (temp file + rename), so a
// reader never observes a half-written record.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("localstore: record not found")

// DecodeError reports a record that exists on disk but no longer parses.
// Callers are expected to evict the record and carry on.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return "localstore: corrupt record " + e.Key + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Store persists JSON records under a single directory, one file per key.
type Store struct {
	dir string
}

// New creates the backing directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("[localstore.New] dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[localstore.New] mkdir")
	}
	return &Store{dir: dir}, nil
}

// Put serializes v and replaces the record for key. Last writer wins.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "[localstore.Put] marshal")
	}

	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "[localstore.Put] create temp")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[localstore.Put] write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[localstore.Put] close")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[localstore.Put] rename")
	}
	return nil
}

// Get reads the record for key into v. Returns ErrNotFound when the record
// is absent and a *DecodeError when it exists but cannot be parsed.
func (s *Store) Get(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "[localstore.Get] read")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Key: key, Err: err}
	}
	return nil
}

// Delete removes the record for key. Deleting an absent record is not an error.
func (s *Store) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[localstore.Delete] remove")
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// Keys may contain scope parameters (category names, counts); anything that
// is not filename-safe is mapped to '-'.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '-'
		}
	}, key)
}
