package session

import "errors"

// ErrNotFound is returned by Repo.Load when no snapshot is stored.
var ErrNotFound = errors.New("session: no stored snapshot")

// Repo persists the session snapshot between application runs. Writes are
// whole-record overwrites; there is exactly one snapshot at a time.
type Repo interface {
	// Load returns the stored snapshot, or ErrNotFound when absent.
	// Implementations evict records they cannot parse and report them as
	// absent; structural validation of a parsed record is the manager's job.
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}
