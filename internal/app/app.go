// Package app assembles the backup pipeline from configuration: the Flickr
// client, the in-process bus with its consumer stages, photo storage, the
// metadata index and the sync cursor store.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flickrbackup/internal/downloader"
	"flickrbackup/pkg/catalog"
	"flickrbackup/pkg/config"
	"flickrbackup/pkg/flickr"
	"flickrbackup/pkg/index"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/pipeline"
	"flickrbackup/pkg/queue"
	"flickrbackup/pkg/ratelimit"
	"flickrbackup/pkg/retry"
	"flickrbackup/pkg/storage"
	"flickrbackup/pkg/syncstate"
	"flickrbackup/pkg/ui"
)

// Remote is everything the pipeline needs from Flickr
type Remote interface {
	flickr.CatalogClient
	downloader.PhotoFetcher
}

// App owns every long-lived component of a backup process
type App struct {
	config     *config.Config
	logger     logger.Logger
	remote     Remote
	bus        *queue.Bus
	storage    *storage.Manager
	sink       index.Sink
	syncStore  syncstate.KVStore
	enumerator *catalog.Enumerator
	fanOut     *pipeline.FanOut
	tracker    *syncstate.Tracker
	flow       *pipeline.AssignmentFlow
	subscribed []string
	now        func() time.Time
}

// Option customizes New
type Option func(*options)

type options struct {
	remote    Remote
	syncStore syncstate.KVStore
	sink      index.Sink
	limiter   ratelimit.Limiter
	now       func() time.Time
}

// WithRemote replaces the REST client
func WithRemote(r Remote) Option {
	return func(o *options) { o.remote = r }
}

// WithSyncStore replaces the configured cursor store
func WithSyncStore(s syncstate.KVStore) Option {
	return func(o *options) { o.syncStore = s }
}

// WithIndex replaces the configured index sink
func WithIndex(s index.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithLimiter replaces the hourly quota shared by API calls and downloads
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithClock replaces the wall clock used for the sync cursor and dumps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the pipeline described by cfg. The bus is subscribed but not
// started.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{config: cfg, logger: log, now: o.now}

	limiter := o.limiter
	if limiter == nil {
		limiter = ratelimit.PerHour(cfg.RateLimit.RequestsPerHour, cfg.RateLimit.BurstSize)
	}

	a.remote = o.remote
	if a.remote == nil {
		a.remote = flickr.NewClient(cfg.Flickr,
			flickr.WithLimiter(limiter),
			flickr.WithRetry(retry.FromConfig(cfg.Retry, log)),
			flickr.WithLogger(log),
		)
	}

	var err error
	a.storage, err = storage.NewManager(cfg.Download.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	a.sink = o.sink
	if a.sink == nil {
		if a.sink, err = index.New(cfg.Index, log); err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
	}

	a.syncStore = o.syncStore
	if a.syncStore == nil {
		if a.syncStore, err = syncstate.OpenStore(cfg.Sync); err != nil {
			_ = a.sink.Close()
			return nil, fmt.Errorf("failed to open sync store: %w", err)
		}
	}

	topics := cfg.Queue.Topics
	a.bus = queue.NewBus(queue.OptionsFromConfig(cfg.Queue), log)
	a.enumerator = catalog.NewEnumerator(a.remote, log)
	a.fanOut = pipeline.NewFanOut(a.enumerator, a.bus, topics.Pages, topics.Downloads, cfg.Flickr.PageSize, log)
	a.tracker = syncstate.NewTracker(a.syncStore, cfg.Sync.Key, a.enumerator, a.bus, topics.Contexts,
		syncstate.WithClock(o.now), syncstate.WithLogger(log))
	a.flow = pipeline.NewAssignmentFlow(a.enumerator, a.remote, a.bus, topics.Assignments, log)

	worker := downloader.NewWorker(a.remote, a.storage, limiter, cfg.Download.Timeout, log)
	stages := pipeline.Stages{
		Pages:       pipeline.NewExtractor(a.remote, a.bus, topics.Downloads, a.sink, log).Handler(),
		Downloads:   worker.Handler(),
		Contexts:    pipeline.NewContextResolver(a.remote, a.bus, topics.Downloads, log).Handler(),
		Assignments: pipeline.NewAssigner(a.remote, log).Handler(),
	}
	if a.subscribed, err = pipeline.Subscribe(a.bus, topics, cfg.Queue.Consumers, stages); err != nil {
		_ = a.closeStores()
		return nil, err
	}

	return a, nil
}

// Start launches the consumer pools
func (a *App) Start(ctx context.Context) error {
	logger.LogComponentStart(a.logger, "pipeline", map[string]interface{}{
		"topics": a.subscribed,
		"root":   a.storage.Root(),
	})
	return a.bus.Start(ctx)
}

// Wait blocks until every published message has been handled
func (a *App) Wait(ctx context.Context) error {
	return a.bus.WaitIdle(ctx)
}

// Close stops the consumers and releases the index and sync store
func (a *App) Close() error {
	err := a.bus.Stop()
	logger.LogComponentStop(a.logger, "pipeline", "closed")
	return errors.Join(err, a.closeStores())
}

func (a *App) closeStores() error {
	return errors.Join(a.sink.Close(), a.syncStore.Close())
}

// Subscribed lists the topics this process consumes
func (a *App) Subscribed() []string {
	return a.subscribed
}

// Full fans out every photoset and the photos in no set
func (a *App) Full(ctx context.Context) (pipeline.FanOutReport, error) {
	return a.fanOut.All(ctx)
}

// Set fans out one photoset
func (a *App) Set(ctx context.Context, setID string) (int, error) {
	return a.fanOut.Set(ctx, setID)
}

// NotInSet publishes downloads for photos outside every set
func (a *App) NotInSet(ctx context.Context) (int, error) {
	return a.fanOut.NotInSet(ctx)
}

// Recent runs an incremental sync against the stored cursor
func (a *App) Recent(ctx context.Context) (syncstate.Report, error) {
	return a.tracker.Run(ctx)
}

// Year creates the set for year and queues an assignment per photo
func (a *App) Year(ctx context.Context, year int) (string, int, error) {
	return a.flow.BackupYear(ctx, year)
}

// Dump lists the whole account and, when path is set, saves it there
func (a *App) Dump(ctx context.Context, path string) (catalog.Dump, error) {
	photos, err := a.enumerator.ListAll(ctx, catalog.AllSince)
	if err != nil {
		return catalog.Dump{}, err
	}
	dump := catalog.Dump{GeneratedAt: a.now().UTC(), Photos: photos}
	if path != "" {
		if err := catalog.SaveDump(path, dump); err != nil {
			return dump, err
		}
	}
	return dump, nil
}

// ByYear publishes downloads for the photos of year found in the dump at path
func (a *App) ByYear(ctx context.Context, path string, year int) (int, error) {
	dump, err := catalog.LoadDump(path)
	if err != nil {
		return 0, err
	}
	return pipeline.YearFromDump(ctx, a.bus, a.config.Queue.Topics.Downloads, dump, year)
}

// Summary reports the counters of this process so far
func (a *App) Summary(command string, elapsed time.Duration) ui.RunSummary {
	return ui.RunSummary{
		Command:     command,
		Topics:      a.bus.Stats(),
		Saved:       a.storage.SavedCount(),
		DeadLetters: len(a.bus.DeadLetters()),
		Elapsed:     elapsed,
	}
}
