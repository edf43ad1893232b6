package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trustgate/internal/config"
	"github.com/sells-group/trustgate/internal/history"
)

func TestOpenHistoryStore_FileDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	store, err := openHistoryStore(context.Background(), config.HistoryConfig{
		Driver: "file",
		Path:   path,
	})
	require.NoError(t, err)
	defer store.Close()

	fs, ok := store.(*history.JSONFileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

func TestOpenHistoryStore_EmptyDriverDefaultsToFile(t *testing.T) {
	store, err := openHistoryStore(context.Background(), config.HistoryConfig{
		Path: filepath.Join(t.TempDir(), "history.json"),
	})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*history.JSONFileStore)
	assert.True(t, ok)
}

func TestOpenHistoryStore_SQLiteDriver(t *testing.T) {
	store, err := openHistoryStore(context.Background(), config.HistoryConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestOpenHistoryStore_MissingPath(t *testing.T) {
	_, err := openHistoryStore(context.Background(), config.HistoryConfig{Driver: "file"})
	require.Error(t, err)

	_, err = openHistoryStore(context.Background(), config.HistoryConfig{Driver: "sqlite"})
	require.Error(t, err)

	_, err = openHistoryStore(context.Background(), config.HistoryConfig{Driver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestOpenHistoryStore_UnknownDriver(t *testing.T) {
	_, err := openHistoryStore(context.Background(), config.HistoryConfig{Driver: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "etcd"`)
}
