package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	errs "flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
)

// DeadLetter is a message that exhausted its deliveries or failed for
// good
type DeadLetter struct {
	Message Message
	Err     error
	At      time.Time
}

// TopicStats counts what happened on one topic
type TopicStats struct {
	Published    int64
	Acked        int64
	Redelivered  int64
	DeadLettered int64
	Backlog      int
	Consumers    int
}

type topic struct {
	name    string
	handler Handler

	mu      sync.Mutex
	items   []Message
	running int
	ready   chan struct{}

	published    atomic.Int64
	acked        atomic.Int64
	redelivered  atomic.Int64
	deadLettered atomic.Int64
}

func newTopic(name string) *topic {
	return &topic{name: name, ready: make(chan struct{}, 1)}
}

func (t *topic) push(m Message) int {
	t.mu.Lock()
	t.items = append(t.items, m)
	backlog := len(t.items)
	t.mu.Unlock()
	t.signal()
	return backlog
}

func (t *topic) pop() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return Message{}, false
	}
	m := t.items[0]
	t.items[0] = Message{}
	t.items = t.items[1:]
	if len(t.items) > 0 {
		t.signal()
	}
	return m, true
}

func (t *topic) signal() {
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

// Bus is an in-process broker. Each subscribed topic gets a pool of
// consumers that starts at MinConsumers and grows towards MaxConsumers
// while the backlog outnumbers the running consumers.
type Bus struct {
	opts   Options
	logger logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	topics  map[string]*topic
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool

	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}

	deadMu sync.Mutex
	dead   []DeadLetter
}

// NewBus creates a bus with the given pool sizing
func NewBus(opts Options, log logger.Logger) *Bus {
	if log == nil {
		log = logger.GetLogger()
	}
	idle := make(chan struct{})
	close(idle)
	return &Bus{
		opts:   opts.normalized(),
		logger: log.WithField("component", "queue"),
		now:    time.Now,
		topics: make(map[string]*topic),
		idle:   idle,
	}
}

func (b *Bus) topic(name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = newTopic(name)
		b.topics[name] = t
	}
	return t
}

// Subscribe registers the single handler for a topic. Messages published
// before a handler existed are delivered once it does.
func (b *Bus) Subscribe(name string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for topic %s", name)
	}
	t := b.topic(name)

	t.mu.Lock()
	if t.handler != nil {
		t.mu.Unlock()
		return fmt.Errorf("topic %s already has a subscriber", name)
	}
	t.handler = handler
	parked := len(t.items)
	b.addPending(parked)
	t.mu.Unlock()

	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if started {
		b.startConsumers(t, b.initialConsumers(parked))
	}
	return nil
}

// Publish encodes msg and enqueues it on the named topic
func (b *Bus) Publish(ctx context.Context, name string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := messages.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", name, err)
	}

	t := b.topic(name)
	m := Message{
		ID:          uuid.NewString(),
		Topic:       name,
		Body:        body,
		PublishedAt: b.now(),
	}

	// counting and enqueueing under one lock keeps Subscribe from
	// missing or double counting this message
	t.mu.Lock()
	subscribed := t.handler != nil
	if subscribed {
		b.addPending(1)
	}
	t.items = append(t.items, m)
	backlog := len(t.items)
	t.mu.Unlock()
	t.signal()
	t.published.Add(1)

	if !subscribed {
		b.logger.DebugWithFields("No consumer for topic, message parked", map[string]interface{}{
			"topic": name,
		})
		return nil
	}
	b.maybeGrow(t, backlog)
	return nil
}

// Start launches the consumer pools of all subscribed topics
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("bus already started")
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.group = new(errgroup.Group)
	b.started = true
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		subscribed, backlog := t.handler != nil, len(t.items)
		t.mu.Unlock()
		if subscribed {
			b.startConsumers(t, b.initialConsumers(backlog))
		}
	}

	b.logger.InfoWithFields("Bus started", map[string]interface{}{
		"min_consumers":  b.opts.MinConsumers,
		"max_consumers":  b.opts.MaxConsumers,
		"max_deliveries": b.opts.MaxDeliveries,
	})
	return nil
}

// Stop cancels all consumers and waits for in-flight handlers to return
func (b *Bus) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.cancel()
	group := b.group
	b.started = false
	b.mu.Unlock()

	err := group.Wait()
	for name, st := range b.Stats() {
		b.logger.InfoWithFields("Topic summary", map[string]interface{}{
			"topic":         name,
			"published":     st.Published,
			"acked":         st.Acked,
			"redelivered":   st.Redelivered,
			"dead_lettered": st.DeadLettered,
			"backlog":       st.Backlog,
		})
	}
	return err
}

// WaitIdle blocks until every message on a subscribed topic has been
// acknowledged or dead-lettered
func (b *Bus) WaitIdle(ctx context.Context) error {
	b.pendingMu.Lock()
	idle := b.idle
	b.pendingMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeadLetters returns the messages that were given up on
func (b *Bus) DeadLetters() []DeadLetter {
	b.deadMu.Lock()
	defer b.deadMu.Unlock()
	out := make([]DeadLetter, len(b.dead))
	copy(out, b.dead)
	return out
}

// Stats returns per-topic counters
func (b *Bus) Stats() map[string]TopicStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]TopicStats, len(b.topics))
	for name, t := range b.topics {
		t.mu.Lock()
		backlog, running := len(t.items), t.running
		t.mu.Unlock()
		out[name] = TopicStats{
			Published:    t.published.Load(),
			Acked:        t.acked.Load(),
			Redelivered:  t.redelivered.Load(),
			DeadLettered: t.deadLettered.Load(),
			Backlog:      backlog,
			Consumers:    running,
		}
	}
	return out
}

func (b *Bus) addPending(n int) {
	if n <= 0 {
		return
	}
	b.pendingMu.Lock()
	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending += n
	b.pendingMu.Unlock()
}

func (b *Bus) donePending() {
	b.pendingMu.Lock()
	b.pending--
	if b.pending == 0 {
		close(b.idle)
	}
	b.pendingMu.Unlock()
}

func (b *Bus) initialConsumers(backlog int) int {
	n := b.opts.MinConsumers
	if backlog > n {
		n = min(backlog, b.opts.MaxConsumers)
	}
	return n
}

func (b *Bus) maybeGrow(t *topic, backlog int) {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return
	}

	t.mu.Lock()
	grow := backlog > t.running && t.running < b.opts.MaxConsumers
	t.mu.Unlock()
	if grow {
		b.startConsumers(t, 1)
	}
}

func (b *Bus) startConsumers(t *topic, n int) {
	b.mu.Lock()
	ctx, group := b.ctx, b.group
	b.mu.Unlock()

	for i := 0; i < n; i++ {
		t.mu.Lock()
		if t.running >= b.opts.MaxConsumers {
			t.mu.Unlock()
			return
		}
		t.running++
		id := t.running
		t.mu.Unlock()

		group.Go(func() error {
			b.consume(ctx, t, id)
			return nil
		})
	}
}

func (b *Bus) consume(ctx context.Context, t *topic, id int) {
	defer func() {
		t.mu.Lock()
		t.running--
		t.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		m, ok := t.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-t.ready:
				continue
			}
		}
		b.deliver(ctx, t, id, m)
	}
}

func (b *Bus) deliver(ctx context.Context, t *topic, consumerID int, m Message) {
	m.Delivery++
	err := safeHandle(ctx, t.handler, m)
	if err == nil {
		t.acked.Add(1)
		b.donePending()
		return
	}

	fields := map[string]interface{}{
		"topic":       t.name,
		"message_id":  m.ID,
		"delivery":    m.Delivery,
		"consumer_id": consumerID,
	}

	if ctx.Err() != nil {
		b.logger.WithError(err).WarnWithFields("Handler interrupted by shutdown", fields)
		b.donePending()
		return
	}

	if errs.IsRedeliverable(err) && m.Delivery < b.opts.MaxDeliveries {
		t.redelivered.Add(1)
		b.logger.WithError(err).WarnWithFields("Handler failed, redelivering", fields)
		t.push(m)
		return
	}

	t.deadLettered.Add(1)
	b.logger.WithError(err).ErrorWithFields("Handler failed, message dead-lettered", fields)
	b.deadMu.Lock()
	b.dead = append(b.dead, DeadLetter{Message: m, Err: err, At: b.now()})
	b.deadMu.Unlock()
	b.donePending()
}

func safeHandle(ctx context.Context, h Handler, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, m)
}
