package downloader

import (
	"context"
	"fmt"
	"io"
	"time"

	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
	"flickrbackup/pkg/ratelimit"
)

// PhotoFetcher opens the original of a photo for reading
type PhotoFetcher interface {
	OpenPhoto(ctx context.Context, url string) (io.ReadCloser, error)
}

// PhotoStorage maps photos to paths and writes them
type PhotoStorage interface {
	PathFor(setName, title, photoID, sourceURL string) string
	Exists(path string) bool
	Save(path string, r io.Reader) (int64, error)
}

// Result describes one handled download message
type Result struct {
	Path     string
	Skipped  bool
	Size     int64
	Duration time.Duration
}

// Worker consumes download messages and writes each photo once
type Worker struct {
	fetcher     PhotoFetcher
	storage     PhotoStorage
	rateLimiter ratelimit.Limiter
	timeout     time.Duration
	logger      logger.Logger
}

// NewWorker creates a download worker. A zero timeout leaves downloads
// bounded only by the caller's context.
func NewWorker(
	fetcher PhotoFetcher,
	storage PhotoStorage,
	rateLimiter ratelimit.Limiter,
	timeout time.Duration,
	log logger.Logger,
) *Worker {
	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	return &Worker{
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		timeout:     timeout,
		logger:      log.WithField("component", "downloader"),
	}
}

// Download writes the photo named by msg unless its target already exists.
// An existing target is a success that touches neither the network nor the
// disk. Errors are not retried here; redelivery is up to the queue.
func (w *Worker) Download(ctx context.Context, msg messages.Download) (Result, error) {
	start := time.Now()
	title := messages.TitleOrID(msg.Title, msg.PhotoID)
	result := Result{
		Path: w.storage.PathFor(msg.SetName, title, msg.PhotoID, msg.SourceURL),
	}

	if w.storage.Exists(result.Path) {
		result.Skipped = true
		result.Duration = time.Since(start)
		logger.LogDownload(w.logger, msg.PhotoID, msg.SetName, result.Path, true, nil)
		return result, nil
	}

	if !w.rateLimiter.Allow() {
		waitStart := time.Now()
		if err := w.rateLimiter.Wait(ctx); err != nil {
			return result, err
		}
		logger.LogRateLimit(w.logger, "download", time.Since(waitStart))
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	body, err := w.fetcher.OpenPhoto(ctx, msg.SourceURL)
	if err != nil {
		result.Duration = time.Since(start)
		logger.LogDownload(w.logger, msg.PhotoID, msg.SetName, result.Path, false, err)
		return result, fmt.Errorf("download %s: %w", msg.PhotoID, err)
	}
	defer body.Close()

	result.Size, err = w.storage.Save(result.Path, body)
	result.Duration = time.Since(start)
	if err != nil {
		logger.LogDownload(w.logger, msg.PhotoID, msg.SetName, result.Path, false, err)
		return result, fmt.Errorf("download %s: %w", msg.PhotoID, err)
	}

	w.logger.DebugWithFields("Photo written", map[string]interface{}{
		"photo_id": msg.PhotoID,
		"size":     result.Size,
		"duration": result.Duration,
	})
	logger.LogDownload(w.logger, msg.PhotoID, msg.SetName, result.Path, false, nil)
	return result, nil
}

// Handler adapts the worker to a queue subscription
func (w *Worker) Handler() queue.Handler {
	return queue.HandlerFor(func(ctx context.Context, msg messages.Download) error {
		_, err := w.Download(ctx, msg)
		return err
	})
}
