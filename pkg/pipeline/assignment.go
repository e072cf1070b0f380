package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"flickrbackup/pkg/flickr"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// ErrNoPhotos is returned when a year has no photos to assign
var ErrNoPhotos = stderrors.New("no photos taken in that year")

// DateRangeSearch walks photos by taken date one page at a time
type DateRangeSearch interface {
	ListSearchResults(ctx context.Context, minTaken, maxTaken int64, fn func(page int, photos []flickr.Photo) error) error
}

// SetWriter creates sets and adds photos to them
type SetWriter interface {
	CreatePhotoset(ctx context.Context, title, primaryPhotoID string) (string, error)
	AddPhotoToPhotoset(ctx context.Context, photosetID, photoID string) error
}

// AssignmentFlow collects a year's photos into a new set
type AssignmentFlow struct {
	search    DateRangeSearch
	sets      SetWriter
	publisher queue.Publisher
	topic     string
	logger    logger.Logger
}

// NewAssignmentFlow creates a flow publishing assignments to topic
func NewAssignmentFlow(search DateRangeSearch, sets SetWriter, publisher queue.Publisher, topic string, log logger.Logger) *AssignmentFlow {
	if log == nil {
		log = logger.GetLogger()
	}
	return &AssignmentFlow{
		search:    search,
		sets:      sets,
		publisher: publisher,
		topic:     topic,
		logger:    log.WithField("component", "assignment"),
	}
}

// YearBounds returns the first and last second of year in UTC as unix time
func YearBounds(year int) (int64, int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return start.Unix(), end.Unix()
}

// BackupYear creates a set titled after year, seeded with the first photo
// taken that year, and publishes an assignment for every photo of the year
func (a *AssignmentFlow) BackupYear(ctx context.Context, year int) (string, int, error) {
	minTaken, maxTaken := YearBounds(year)
	var (
		setID     string
		published int
	)

	err := a.search.ListSearchResults(ctx, minTaken, maxTaken, func(page int, photos []flickr.Photo) error {
		if len(photos) == 0 {
			return nil
		}
		if setID == "" {
			id, err := a.sets.CreatePhotoset(ctx, strconv.Itoa(year), photos[0].ID)
			if err != nil {
				return fmt.Errorf("create set for %d: %w", year, err)
			}
			setID = id
			a.logger.InfoWithFields("Created year set", map[string]interface{}{
				"year":   year,
				"set_id": setID,
			})
		}

		for _, p := range photos {
			msg := messages.Assignment{PhotoID: p.ID, SetID: setID}
			if err := a.publisher.Publish(ctx, a.topic, msg); err != nil {
				return fmt.Errorf("publish assignment %s: %w", p.ID, err)
			}
			published++
		}
		return nil
	})
	if err != nil {
		return setID, published, err
	}
	if setID == "" {
		return "", 0, ErrNoPhotos
	}

	a.logger.InfoWithFields("Year assignments published", map[string]interface{}{
		"year":        year,
		"set_id":      setID,
		"assignments": published,
	})
	return setID, published, nil
}

// Assigner consumes assignments
type Assigner struct {
	sets   SetWriter
	logger logger.Logger
}

// NewAssigner creates an assigner
func NewAssigner(sets SetWriter, log logger.Logger) *Assigner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Assigner{sets: sets, logger: log.WithField("component", "assigner")}
}

// Assign adds the photo to the set
func (a *Assigner) Assign(ctx context.Context, msg messages.Assignment) error {
	if err := a.sets.AddPhotoToPhotoset(ctx, msg.SetID, msg.PhotoID); err != nil {
		return fmt.Errorf("add %s to %s: %w", msg.PhotoID, msg.SetID, err)
	}
	a.logger.DebugWithFields("Photo assigned", map[string]interface{}{
		"photo_id": msg.PhotoID,
		"set_id":   msg.SetID,
	})
	return nil
}

// Handler adapts the assigner to a queue subscription
func (a *Assigner) Handler() queue.Handler {
	return queue.HandlerFor(a.Assign)
}
