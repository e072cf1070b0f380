package syncstate

import (
	"context"
	"fmt"
	"time"

	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// RecentlyUpdated lists photos changed since a cursor; nil means everything
type RecentlyUpdated interface {
	ListRecentlyUpdated(ctx context.Context, since *int64) ([]messages.ContextRequest, error)
}

// Report summarizes one tracker run
type Report struct {
	Since     *int64
	Published int
	NewCursor int64
	Persisted bool
}

// Tracker runs incremental syncs
type Tracker struct {
	store     KVStore
	key       string
	catalog   RecentlyUpdated
	publisher queue.Publisher
	topic     string
	now       func() time.Time
	logger    logger.Logger
}

// Option customizes a Tracker
type Option func(*Tracker)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker that publishes context requests to topic
func NewTracker(store KVStore, key string, catalog RecentlyUpdated, publisher queue.Publisher, topic string, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		key:       key,
		catalog:   catalog,
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithField("component", "sync")
	return t
}

// Run publishes a context request for every photo updated since the last
// run and then moves the cursor to the time this run started. A failed
// enumeration or publish leaves the cursor where it was.
func (t *Tracker) Run(ctx context.Context) (Report, error) {
	started := t.now()
	var report Report

	state, found, err := Load(t.store, t.key)
	switch {
	case err != nil:
		t.logger.WithError(err).Warn("Unable to load sync state, running a full sync")
	case !found:
		t.logger.Info("No previous sync recorded, running a full sync")
	default:
		since := state.LastSyncEpochSeconds
		report.Since = &since
	}

	reqs, err := t.catalog.ListRecentlyUpdated(ctx, report.Since)
	if err != nil {
		return report, fmt.Errorf("list recently updated: %w", err)
	}
	t.logger.InfoWithFields("Found updated photos", map[string]interface{}{
		"count": len(reqs),
	})

	for _, req := range reqs {
		if err := t.publisher.Publish(ctx, t.topic, req); err != nil {
			return report, fmt.Errorf("publish context request %s: %w", req.PhotoID, err)
		}
		report.Published++
	}

	report.NewCursor = started.Unix()
	if err := Save(t.store, t.key, State{LastSyncEpochSeconds: report.NewCursor}); err != nil {
		t.logger.WithError(err).Error("Unable to save sync state")
		return report, nil
	}
	report.Persisted = true
	return report, nil
}
