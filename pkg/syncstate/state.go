package syncstate

import (
	"strconv"
	"strings"

	errs "flickrbackup/pkg/errors"
)

// State is the persisted incremental sync cursor
type State struct {
	LastSyncEpochSeconds int64
}

// Load reads the cursor stored under key. found is false when no sync has
// been recorded.
func Load(store KVStore, key string) (state State, found bool, err error) {
	raw, ok, err := store.Get(key)
	if err != nil {
		return State{}, false, errs.Wrap(errs.ErrorTypePersistence, "load sync state", err)
	}
	if !ok {
		return State{}, false, nil
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return State{}, false, errs.Wrap(errs.ErrorTypePersistence, "load sync state", err)
	}
	return State{LastSyncEpochSeconds: secs}, true, nil
}

// Save overwrites the cursor stored under key
func Save(store KVStore, key string, state State) error {
	if err := store.Set(key, strconv.FormatInt(state.LastSyncEpochSeconds, 10)); err != nil {
		return errs.Wrap(errs.ErrorTypePersistence, "save sync state", err)
	}
	return nil
}
