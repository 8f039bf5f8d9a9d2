package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaladseva/eseva-portal/internal/localstore"
	"github.com/jaladseva/eseva-portal/session"
)

func newLocalRepo(t *testing.T) (*session.LocalRepo, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := localstore.New(dir)
	require.NoError(t, err)
	repo, err := session.NewLocalRepo(store)
	require.NoError(t, err)
	return repo, dir
}

func TestLocalRepoRoundTrip(t *testing.T) {
	repo, _ := newLocalRepo(t)

	in := &session.Session{
		Username:     "editor1",
		Email:        "editor1@example.com",
		Groups:       []string{"admin", "writers"},
		AccessToken:  "at",
		IDToken:      "it",
		RefreshToken: "rt",
		ExpiresAt:    time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC).UnixMilli(),
	}
	require.NoError(t, repo.Save(in))

	out, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestLocalRepoLoadWhenAbsent(t *testing.T) {
	repo, _ := newLocalRepo(t)
	_, err := repo.Load()
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestLocalRepoEvictsUnparseableSnapshot(t *testing.T) {
	repo, dir := newLocalRepo(t)

	path := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := repo.Load()
	require.ErrorIs(t, err, session.ErrNotFound)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "corrupt snapshot file must be removed")
}

func TestLocalRepoClear(t *testing.T) {
	repo, _ := newLocalRepo(t)

	require.NoError(t, repo.Save(&session.Session{Username: "u", AccessToken: "a", ExpiresAt: 1}))
	require.NoError(t, repo.Clear())
	require.NoError(t, repo.Clear())

	_, err := repo.Load()
	require.ErrorIs(t, err, session.ErrNotFound)
}
