package pipeline

import (
	"context"
	"fmt"

	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/paging"
	"flickrbackup/pkg/queue"
)

// Catalog is the part of catalog.Enumerator the fan-out needs
type Catalog interface {
	ListPhotosets(ctx context.Context) ([]messages.CatalogUnit, error)
	Photoset(ctx context.Context, id string) (messages.CatalogUnit, error)
	ListNotInSet(ctx context.Context) ([]messages.Download, error)
}

// FanOutReport counts what a full fan-out published
type FanOutReport struct {
	Sets      int
	Pages     int
	Downloads int
}

// FanOut splits photosets into page work items
type FanOut struct {
	catalog        Catalog
	publisher      queue.Publisher
	pagesTopic     string
	downloadsTopic string
	pageSize       int
	logger         logger.Logger
}

// NewFanOut creates a fan-out publishing page work to pagesTopic and
// not-in-set downloads to downloadsTopic
func NewFanOut(catalog Catalog, publisher queue.Publisher, pagesTopic, downloadsTopic string, pageSize int, log logger.Logger) *FanOut {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FanOut{
		catalog:        catalog,
		publisher:      publisher,
		pagesTopic:     pagesTopic,
		downloadsTopic: downloadsTopic,
		pageSize:       pageSize,
		logger:         log.WithField("component", "fanout"),
	}
}

// Unit publishes one page work item per page of unit, in page order. An
// empty unit publishes nothing.
func (f *FanOut) Unit(ctx context.Context, unit messages.CatalogUnit) (int, error) {
	pages := paging.Pages(unit.ItemCount, f.pageSize)
	for _, page := range pages {
		work := messages.PageWork{
			CatalogUnitID: unit.ID,
			Page:          page,
			DisplayName:   unit.DisplayName,
		}
		if err := f.publisher.Publish(ctx, f.pagesTopic, work); err != nil {
			return page - 1, fmt.Errorf("publish page %d of %s: %w", page, unit.ID, err)
		}
	}

	f.logger.InfoWithFields("Photoset fanned out", map[string]interface{}{
		"set_id": unit.ID,
		"set":    unit.DisplayName,
		"photos": unit.ItemCount,
		"pages":  len(pages),
	})
	return len(pages), nil
}

// Set fans out a single photoset known by id
func (f *FanOut) Set(ctx context.Context, setID string) (int, error) {
	unit, err := f.catalog.Photoset(ctx, setID)
	if err != nil {
		return 0, err
	}
	return f.Unit(ctx, unit)
}

// All fans out every photoset and then publishes downloads for the photos
// that are in no set
func (f *FanOut) All(ctx context.Context) (FanOutReport, error) {
	var report FanOutReport

	units, err := f.catalog.ListPhotosets(ctx)
	if err != nil {
		return report, err
	}
	for _, unit := range units {
		n, err := f.Unit(ctx, unit)
		report.Pages += n
		if err != nil {
			return report, err
		}
		report.Sets++
	}

	n, err := f.NotInSet(ctx)
	report.Downloads = n
	if err != nil {
		return report, err
	}

	f.logger.InfoWithFields("Full backup fanned out", map[string]interface{}{
		"sets":      report.Sets,
		"pages":     report.Pages,
		"downloads": report.Downloads,
	})
	return report, nil
}

// NotInSet publishes a download for every photo that is in no set
func (f *FanOut) NotInSet(ctx context.Context) (int, error) {
	downloads, err := f.catalog.ListNotInSet(ctx)
	if err != nil {
		return 0, err
	}
	return publishAll(ctx, f.publisher, f.downloadsTopic, downloads)
}

func publishAll[T any](ctx context.Context, publisher queue.Publisher, topic string, msgs []T) (int, error) {
	for i, msg := range msgs {
		if err := publisher.Publish(ctx, topic, msg); err != nil {
			return i, fmt.Errorf("publish to %s: %w", topic, err)
		}
	}
	return len(msgs), nil
}
