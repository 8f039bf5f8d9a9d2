package feed

import (
	"github.com/pkg/errors"

	"github.com/jaladseva/eseva-portal/internal/localstore"
)

// ErrNotFound is returned by Repo.Load when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Repo persists cache entries keyed by scope.
type Repo interface {
	Load(key string) (*Entry, error)
	Store(key string, entry *Entry) error
	Delete(key string) error
}

// LocalRepo stores cache entries as JSON files in the local data folder.
type LocalRepo struct {
	store *localstore.Store
}

// NewLocalRepo returns a Repo over the given store.
func NewLocalRepo(store *localstore.Store) (*LocalRepo, error) {
	if store == nil {
		return nil, errors.New("[NewLocalRepo] store is required")
	}
	return &LocalRepo{store: store}, nil
}

func (r *LocalRepo) Load(key string) (*Entry, error) {
	var entry Entry
	if err := r.store.Get(key, &entry); err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "[LocalRepo.Load]")
	}
	return &entry, nil
}

func (r *LocalRepo) Store(key string, entry *Entry) error {
	if err := r.store.Put(key, entry); err != nil {
		return errors.Wrap(err, "[LocalRepo.Store]")
	}
	return nil
}

func (r *LocalRepo) Delete(key string) error {
	if err := r.store.Delete(key); err != nil {
		return errors.Wrap(err, "[LocalRepo.Delete]")
	}
	return nil
}
