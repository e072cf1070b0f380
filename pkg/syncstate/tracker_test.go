package syncstate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// mockCatalog records the cursor it was called with
type mockCatalog struct {
	results []messages.ContextRequest
	err     error
	calls   int
	since   *int64
}

func (m *mockCatalog) ListRecentlyUpdated(ctx context.Context, since *int64) ([]messages.ContextRequest, error) {
	m.calls++
	m.since = since
	return m.results, m.err
}

// brokenStore fails every operation
type brokenStore struct{}

func (brokenStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenStore) Set(string, string) error         { return errors.New("disk gone") }
func (brokenStore) Close() error                     { return nil }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func req(id string) messages.ContextRequest {
	return messages.ContextRequest{PhotoID: id, Title: "t" + id, SourceURL: "https://x/" + id + ".jpg"}
}

func newTestTracker(t *testing.T, store KVStore, cat RecentlyUpdated, pub queue.Publisher, log logger.Logger) *Tracker {
	t.Helper()
	return NewTracker(store, "lastUpdated", cat, pub, "contexts",
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(log),
	)
}

func TestTrackerFirstRunIsFullSync(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)
	cat := &mockCatalog{results: []messages.ContextRequest{req("1"), req("2")}}
	pub := queue.NewMemoryPublisher()

	report, err := newTestTracker(t, store, cat, pub, logger.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, cat.since)
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 2, pub.Count("contexts"))
	assert.True(t, report.Persisted)

	state, found, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, fixedNow.Unix(), state.LastSyncEpochSeconds)
}

func TestTrackerUsesStoredCursor(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)
	require.NoError(t, Save(store, "lastUpdated", State{LastSyncEpochSeconds: 1600000000}))
	cat := &mockCatalog{}

	report, err := newTestTracker(t, store, cat, queue.NewMemoryPublisher(), logger.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, cat.since)
	assert.Equal(t, int64(1600000000), *cat.since)
	assert.Equal(t, int64(1600000000), *report.Since)
}

func TestTrackerCursorIsWallClockNotItemTime(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)
	// items carry no timestamps the tracker could use; the cursor must be the clock
	cat := &mockCatalog{results: []messages.ContextRequest{req("1")}}

	_, err = newTestTracker(t, store, cat, queue.NewMemoryPublisher(), logger.NewNop()).Run(context.Background())
	require.NoError(t, err)

	state, _, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Unix(), state.LastSyncEpochSeconds)
}

func TestTrackerEnumerationFailureKeepsCursor(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)
	require.NoError(t, Save(store, "lastUpdated", State{LastSyncEpochSeconds: 42}))
	cat := &mockCatalog{err: errors.New("remote down")}

	_, err = newTestTracker(t, store, cat, queue.NewMemoryPublisher(), logger.NewNop()).Run(context.Background())
	require.Error(t, err)

	state, _, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.Equal(t, int64(42), state.LastSyncEpochSeconds)
}

func TestTrackerPublishFailureKeepsCursor(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sync.json"))
	require.NoError(t, err)
	cat := &mockCatalog{results: []messages.ContextRequest{req("1"), req("2")}}
	pub := queue.NewMemoryPublisher()
	pub.FailOn = func(topic string, msg any) error {
		if msg.(messages.ContextRequest).PhotoID == "2" {
			return errors.New("broker unavailable")
		}
		return nil
	}

	report, err := newTestTracker(t, store, cat, pub, logger.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, report.Published)

	_, found, err := Load(store, "lastUpdated")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTrackerBrokenStoreDegrades(t *testing.T) {
	log := logger.NewTestLogger()
	cat := &mockCatalog{results: []messages.ContextRequest{req("1")}}
	pub := queue.NewMemoryPublisher()

	report, err := newTestTracker(t, brokenStore{}, cat, pub, log).Run(context.Background())
	require.NoError(t, err, "store failures must not fail the run")

	assert.Nil(t, cat.since, "unreadable state means full sync")
	assert.Equal(t, 1, pub.Count("contexts"))
	assert.False(t, report.Persisted)
	assert.True(t, log.HasMessage("Unable to load sync state, running a full sync"))
	assert.True(t, log.HasMessage("Unable to save sync state"))
}
