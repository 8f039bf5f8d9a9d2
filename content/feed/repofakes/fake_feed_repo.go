// Package repofakes provides in-memory fakes of the feed repositories for
// testing.
package repofakes

import (
	"sync"

	"github.com/jaladseva/eseva-portal/content/feed"
)

// FakeFeedRepo is an in-memory feed.Repo with error injection.
type FakeFeedRepo struct {
	mu      sync.Mutex
	entries map[string]*feed.Entry

	LoadErr  error
	StoreErr error

	LoadCalls   int
	StoreCalls  int
	DeleteCalls int
}

// NewFakeFeedRepo returns an empty fake repo.
func NewFakeFeedRepo() *FakeFeedRepo {
	return &FakeFeedRepo{entries: map[string]*feed.Entry{}}
}

func (r *FakeFeedRepo) Load(key string) (*feed.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LoadCalls++
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	entry, ok := r.entries[key]
	if !ok {
		return nil, feed.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *FakeFeedRepo) Store(key string, entry *feed.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StoreCalls++
	if r.StoreErr != nil {
		return r.StoreErr
	}
	copied := *entry
	r.entries[key] = &copied
	return nil
}

func (r *FakeFeedRepo) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeleteCalls++
	delete(r.entries, key)
	return nil
}

// Seed places an entry directly into the fake.
func (r *FakeFeedRepo) Seed(key string, entry *feed.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries[key] = &copied
}

// Stored returns the entry currently held for a key, or nil.
func (r *FakeFeedRepo) Stored(key string) *feed.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil
	}
	copied := *entry
	return &copied
}
