package session

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jaladseva/eseva-portal/internal/localstore"
)

// snapshotKey is the single well-known record the session lives under.
const snapshotKey = "session"

// storedAuth is the persisted snapshot shape. Tokens sit at the top level,
// identity attributes under "user".
type storedAuth struct {
	AccessToken  string     `json:"accessToken"`
	IDToken      string     `json:"idToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    int64      `json:"expiresAt"`
	User         storedUser `json:"user"`
}

type storedUser struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Groups   []string `json:"groups"`
}

// LocalRepo stores the snapshot in the portal's local key-value store.
type LocalRepo struct {
	store *localstore.Store
}

var _ Repo = (*LocalRepo)(nil)

func NewLocalRepo(store *localstore.Store) (*LocalRepo, error) {
	if store == nil {
		return nil, errors.New("[session.NewLocalRepo] store is required")
	}
	return &LocalRepo{store: store}, nil
}

// Load reads the snapshot back. A record that no longer parses is evicted
// and reported as absent; the caller re-authenticates rather than trusting
// a partial read.
func (r *LocalRepo) Load() (*Session, error) {
	var stored storedAuth
	err := r.store.Get(snapshotKey, &stored)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		var decodeErr *localstore.DecodeError
		if errors.As(err, &decodeErr) {
			log.Warn().Err(decodeErr).Msg("evicting corrupt session snapshot")
			_ = r.store.Delete(snapshotKey)
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "[LocalRepo.Load] read snapshot")
	}

	return &Session{
		Username:     stored.User.Username,
		Email:        stored.User.Email,
		Groups:       stored.User.Groups,
		AccessToken:  stored.AccessToken,
		IDToken:      stored.IDToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
	}, nil
}

func (r *LocalRepo) Save(s *Session) error {
	if s == nil {
		return errors.New("[LocalRepo.Save] session is required")
	}
	stored := storedAuth{
		AccessToken:  s.AccessToken,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User: storedUser{
			Username: s.Username,
			Email:    s.Email,
			Groups:   s.Groups,
		},
	}
	return errors.Wrap(r.store.Put(snapshotKey, stored), "[LocalRepo.Save] write snapshot")
}

func (r *LocalRepo) Clear() error {
	return errors.Wrap(r.store.Delete(snapshotKey), "[LocalRepo.Clear] delete snapshot")
}
