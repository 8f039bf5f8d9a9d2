// Package repofakes provides an in-memory session.Repo for tests.
package repofakes

import (
	"sync"

	"github.com/jaladseva/eseva-portal/session"
)

// FakeSessionRepo is an in-memory session.Repo with error injection and
// call counting.
type FakeSessionRepo struct {
	mu       sync.Mutex
	snapshot *session.Session

	LoadErr  error
	SaveErr  error
	ClearErr error

	LoadCalls  int
	SaveCalls  int
	ClearCalls int
}

var _ session.Repo = (*FakeSessionRepo)(nil)

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (f *FakeSessionRepo) Load() (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoadCalls++
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	if f.snapshot == nil {
		return nil, session.ErrNotFound
	}
	dup := *f.snapshot
	return &dup, nil
}

func (f *FakeSessionRepo) Save(s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveCalls++
	if f.SaveErr != nil {
		return f.SaveErr
	}
	dup := *s
	f.snapshot = &dup
	return nil
}

func (f *FakeSessionRepo) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearCalls++
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.snapshot = nil
	return nil
}

// Stored returns the currently persisted snapshot, or nil.
func (f *FakeSessionRepo) Stored() *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return nil
	}
	dup := *f.snapshot
	return &dup
}

// Seed stores a snapshot directly, bypassing Save counting.
func (f *FakeSessionRepo) Seed(s *session.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s == nil {
		f.snapshot = nil
		return
	}
	dup := *s
	f.snapshot = &dup
}
