// Package queue carries pipeline work items between stages.
//
// Publishers hand typed messages to a named topic; subscribers register one
// handler per topic. Delivery is at-least-once: a handler that fails with a
// redeliverable error sees the same message again, so handlers must be
// idempotent. Bus is the in-process implementation used by the CLI and the
// server; MemoryPublisher records publishes without delivering them.
package queue

import (
	"context"
	"time"

	"flickrbackup/pkg/config"
	"flickrbackup/pkg/messages"
)

// Message is one delivery of a published work item
type Message struct {
	ID          string
	Topic       string
	Body        []byte
	Delivery    int
	PublishedAt time.Time
}

// Handler consumes one message. A nil return acknowledges it.
type Handler func(ctx context.Context, msg Message) error

// Publisher enqueues a work item on a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg any) error
}

// Subscriber registers the handler for a topic
type Subscriber interface {
	Subscribe(topic string, handler Handler) error
}

// HandlerFor decodes the message body into T before calling fn
func HandlerFor[T any](fn func(ctx context.Context, msg T) error) Handler {
	return func(ctx context.Context, m Message) error {
		decoded, err := messages.Decode[T](m.Body)
		if err != nil {
			return err
		}
		return fn(ctx, decoded)
	}
}

// Options sizes the consumer pools of a Bus
type Options struct {
	MinConsumers  int
	MaxConsumers  int
	MaxDeliveries int
}

// OptionsFromConfig reads pool sizing from the queue settings
func OptionsFromConfig(cfg config.QueueConfig) Options {
	return Options{
		MinConsumers:  cfg.MinConsumers,
		MaxConsumers:  cfg.MaxConsumers,
		MaxDeliveries: cfg.MaxDeliveries,
	}
}

func (o Options) normalized() Options {
	if o.MinConsumers <= 0 {
		o.MinConsumers = 1
	}
	if o.MaxConsumers < o.MinConsumers {
		o.MaxConsumers = o.MinConsumers
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 1
	}
	return o
}
