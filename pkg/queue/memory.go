package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"flickrbackup/pkg/messages"
)

// MemoryPublisher records published messages without delivering them
type MemoryPublisher struct {
	// FailOn, when set, is consulted before each publish
	FailOn func(topic string, msg any) error

	mu       sync.Mutex
	messages []Message
}

// NewMemoryPublisher creates an empty recorder
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish validates and records msg
func (p *MemoryPublisher) Publish(ctx context.Context, topic string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.FailOn != nil {
		if err := p.FailOn(topic, msg); err != nil {
			return err
		}
	}
	body, err := messages.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{
		ID:          uuid.NewString(),
		Topic:       topic,
		Body:        body,
		PublishedAt: time.Now(),
	})
	return nil
}

// Messages returns what was published to topic, in order. An empty topic
// returns everything.
func (p *MemoryPublisher) Messages(topic string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Message
	for _, m := range p.messages {
		if topic == "" || m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of messages published to topic
func (p *MemoryPublisher) Count(topic string) int {
	return len(p.Messages(topic))
}

// Reset forgets all recorded messages
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	p.messages = nil
	p.mu.Unlock()
}

// DecodeAll decodes every message body into T
func DecodeAll[T any](msgs []Message) ([]T, error) {
	out := make([]T, 0, len(msgs))
	for _, m := range msgs {
		v, err := messages.Decode[T](m.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
