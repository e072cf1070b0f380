package syncstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flickrbackup/pkg/config"
	errs "flickrbackup/pkg/errors"
)

func testStores(t *testing.T) map[string]KVStore {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "state", "sync.json"))
	require.NoError(t, err)
	bolt, err := OpenBoltStore(filepath.Join(dir, "state", "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]KVStore{"file": file, "bolt": bolt}
}

func TestKVStores(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.Get("lastUpdated")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set("lastUpdated", "100"))
			require.NoError(t, store.Set("lastUpdated", "200"))
			require.NoError(t, store.Set("other", "x"))

			v, found, err := store.Get("lastUpdated")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "200", v)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("lastUpdated", "1700000000"))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	v, found, err := second.Get("lastUpdated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1700000000", v)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must not survive")
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = store.Get("lastUpdated")
	assert.Error(t, err)

	// writing replaces the damaged file
	require.NoError(t, store.Set("lastUpdated", "5"))
	v, _, err := store.Get("lastUpdated")
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestLoadAndSave(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)

	_, found, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, Save(store, "lastUpdated", State{LastSyncEpochSeconds: 1700000000}))
	state, found, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1700000000), state.LastSyncEpochSeconds)

	require.NoError(t, store.Set("lastUpdated", "yesterday"))
	_, _, err = Load(store, "lastUpdated")
	assert.True(t, errs.Is(err, errs.ErrorTypePersistence))
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(config.SyncConfig{Store: "bolt", Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, store)
	require.NoError(t, store.Close())

	t.Setenv("XDG_DATA_HOME", dir)
	store, err = OpenStore(config.SyncConfig{Store: "file"})
	require.NoError(t, err)
	fs, ok := store.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, "sync.json", filepath.Base(fs.Path()))

	_, err = OpenStore(config.SyncConfig{Store: "redis", Path: filepath.Join(dir, "x")})
	assert.Error(t, err)
}
