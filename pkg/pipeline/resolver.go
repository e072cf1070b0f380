package pipeline

import (
	"context"
	"fmt"

	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// ContextSource looks up the sets a photo belongs to
type ContextSource interface {
	AllContexts(ctx context.Context, photoID string) (setTitle string, found bool, err error)
}

// ContextResolver names the folder of photos found outside a set listing
type ContextResolver struct {
	source    ContextSource
	publisher queue.Publisher
	topic     string
	logger    logger.Logger
}

// NewContextResolver creates a resolver publishing downloads to topic
func NewContextResolver(source ContextSource, publisher queue.Publisher, topic string, log logger.Logger) *ContextResolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ContextResolver{
		source:    source,
		publisher: publisher,
		topic:     topic,
		logger:    log.WithField("component", "resolver"),
	}
}

// Resolve publishes exactly one download for req, in the folder of the
// photo's first set or in NoSet
func (r *ContextResolver) Resolve(ctx context.Context, req messages.ContextRequest) error {
	title, found, err := r.source.AllContexts(ctx, req.PhotoID)
	if err != nil {
		return fmt.Errorf("resolve context of %s: %w", req.PhotoID, err)
	}
	if !found {
		title = messages.NoSetName
	}

	download := req.WithSet(title)
	if err := r.publisher.Publish(ctx, r.topic, download); err != nil {
		return fmt.Errorf("publish download %s: %w", req.PhotoID, err)
	}

	r.logger.DebugWithFields("Context resolved", map[string]interface{}{
		"photo_id": req.PhotoID,
		"set":      download.SetName,
	})
	return nil
}

// Handler adapts the resolver to a queue subscription
func (r *ContextResolver) Handler() queue.Handler {
	return queue.HandlerFor(r.Resolve)
}
