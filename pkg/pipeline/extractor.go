package pipeline

import (
	"context"
	"fmt"

	"flickrbackup/pkg/errors"
	"flickrbackup/pkg/flickr"
	"flickrbackup/pkg/index"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// PageSource reads one page of a photoset
type PageSource interface {
	PhotosetPage(ctx context.Context, photosetID string, page int) (*flickr.PhotosetPage, error)
}

// Extractor turns page work into downloads
type Extractor struct {
	source    PageSource
	publisher queue.Publisher
	topic     string
	sink      index.Sink
	logger    logger.Logger
}

// NewExtractor creates an extractor publishing to topic. A nil sink
// disables indexing.
func NewExtractor(source PageSource, publisher queue.Publisher, topic string, sink index.Sink, log logger.Logger) *Extractor {
	if sink == nil {
		sink = index.NopSink{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{
		source:    source,
		publisher: publisher,
		topic:     topic,
		sink:      sink,
		logger:    log.WithField("component", "extractor"),
	}
}

// ExtractPage lists one page of a photoset and publishes a download for
// each photo on it, then indexes them. Index failures are logged only.
func (e *Extractor) ExtractPage(ctx context.Context, work messages.PageWork) (int, error) {
	page, err := e.source.PhotosetPage(ctx, work.CatalogUnitID, work.Page)
	if err != nil {
		return 0, fmt.Errorf("extract page %d of %s: %w", work.Page, work.CatalogUnitID, err)
	}

	setName := work.DisplayName
	if setName == "" {
		setName = page.Title
	}

	downloads := make([]messages.Download, 0, len(page.Photos))
	for _, p := range page.Photos {
		if p.URL == "" {
			return 0, errors.New(errors.ErrorTypeMalformedResponse, flickr.MethodPhotosetsGetPhotos,
				fmt.Sprintf("photo %s has no original URL", p.ID))
		}
		downloads = append(downloads, messages.Download{
			PhotoID:   p.ID,
			Title:     messages.TitleOrID(p.Title, p.ID),
			SourceURL: p.URL,
			SetName:   setName,
			TakenAt:   p.TakenAt,
		})
	}

	n, err := publishAll(ctx, e.publisher, e.topic, downloads)
	if err != nil {
		return n, err
	}
	e.index(ctx, downloads)

	e.logger.InfoWithFields("Page extracted", map[string]interface{}{
		"set_id": work.CatalogUnitID,
		"set":    setName,
		"page":   work.Page,
		"photos": n,
	})
	return n, nil
}

func (e *Extractor) index(ctx context.Context, downloads []messages.Download) {
	for _, d := range downloads {
		body, err := messages.Encode(d)
		if err == nil {
			err = e.sink.Upsert(ctx, d.PhotoID, body)
		}
		if err != nil {
			e.logger.WithError(err).WarnWithFields("Failed to index photo", map[string]interface{}{
				"photo_id": d.PhotoID,
			})
		}
	}
}

// Handler adapts the extractor to a queue subscription
func (e *Extractor) Handler() queue.Handler {
	return queue.HandlerFor(func(ctx context.Context, work messages.PageWork) error {
		_, err := e.ExtractPage(ctx, work)
		return err
	})
}
