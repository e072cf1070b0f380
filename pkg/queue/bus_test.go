package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
)

func newTestBus(t *testing.T, opts Options) *Bus {
	t.Helper()
	bus := NewBus(opts, logger.NewNop())
	t.Cleanup(func() { _ = bus.Stop() })
	return bus
}

func waitIdle(t *testing.T, bus *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.WaitIdle(ctx))
}

func assignment(i int) messages.Assignment {
	return messages.Assignment{PhotoID: string(rune('a' + i%26)), SetID: "set"}
}

func TestBusDeliversEveryMessage(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 3, MaxConsumers: 10, MaxDeliveries: 3})

	var handled atomic.Int64
	require.NoError(t, bus.Subscribe("assign", HandlerFor(func(ctx context.Context, a messages.Assignment) error {
		handled.Add(1)
		return nil
	})))
	require.NoError(t, bus.Start(context.Background()))

	for i := 0; i < 200; i++ {
		require.NoError(t, bus.Publish(context.Background(), "assign", assignment(i)))
	}
	waitIdle(t, bus)

	assert.Equal(t, int64(200), handled.Load())
	st := bus.Stats()["assign"]
	assert.Equal(t, int64(200), st.Published)
	assert.Equal(t, int64(200), st.Acked)
	assert.Zero(t, st.Backlog)
}

func TestBusRedeliversTransportFailures(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 1, MaxDeliveries: 5})

	var deliveries []int
	var mu sync.Mutex
	require.NoError(t, bus.Subscribe("assign", func(ctx context.Context, m Message) error {
		mu.Lock()
		deliveries = append(deliveries, m.Delivery)
		mu.Unlock()
		if m.Delivery < 3 {
			return errs.New(errs.ErrorTypeRemoteTransport, "addPhoto", "connection reset")
		}
		return nil
	}))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), "assign", assignment(0)))
	waitIdle(t, bus)

	assert.Equal(t, []int{1, 2, 3}, deliveries)
	assert.Empty(t, bus.DeadLetters())
	assert.Equal(t, int64(2), bus.Stats()["assign"].Redelivered)
}

func TestBusDeadLettersMalformedImmediately(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 2, MaxDeliveries: 5})

	var calls atomic.Int64
	require.NoError(t, bus.Subscribe("assign", func(ctx context.Context, m Message) error {
		calls.Add(1)
		return errs.New(errs.ErrorTypeMalformedResponse, "decode", "bad body")
	}))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), "assign", assignment(1)))
	waitIdle(t, bus)

	assert.Equal(t, int64(1), calls.Load())
	dead := bus.DeadLetters()
	require.Len(t, dead, 1)
	assert.True(t, errs.Is(dead[0].Err, errs.ErrorTypeMalformedResponse))
}

func TestBusDeadLettersAfterMaxDeliveries(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 1, MaxDeliveries: 3})

	var calls atomic.Int64
	require.NoError(t, bus.Subscribe("assign", func(ctx context.Context, m Message) error {
		calls.Add(1)
		return errors.New("still failing")
	}))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), "assign", assignment(2)))
	waitIdle(t, bus)

	assert.Equal(t, int64(3), calls.Load())
	dead := bus.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Message.Delivery)
}

func TestBusRecoversHandlerPanics(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 1, MaxDeliveries: 1})

	require.NoError(t, bus.Subscribe("assign", func(ctx context.Context, m Message) error {
		panic("nil map")
	}))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), "assign", assignment(3)))
	waitIdle(t, bus)

	dead := bus.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Err.Error(), "nil map")
}

func TestBusWaitIdleCoversChainedTopics(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 2, MaxConsumers: 4, MaxDeliveries: 2})

	var downstream atomic.Int64
	require.NoError(t, bus.Subscribe("first", HandlerFor(func(ctx context.Context, a messages.Assignment) error {
		for i := 0; i < 5; i++ {
			if err := bus.Publish(ctx, "second", a); err != nil {
				return err
			}
		}
		return nil
	})))
	require.NoError(t, bus.Subscribe("second", func(ctx context.Context, m Message) error {
		time.Sleep(time.Millisecond)
		downstream.Add(1)
		return nil
	}))
	require.NoError(t, bus.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), "first", assignment(i)))
	}
	waitIdle(t, bus)

	assert.Equal(t, int64(50), downstream.Load())
}

func TestBusParksMessagesWithoutSubscriber(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 1, MaxDeliveries: 1})
	require.NoError(t, bus.Start(context.Background()))

	require.NoError(t, bus.Publish(context.Background(), "later", assignment(4)))
	waitIdle(t, bus)
	assert.Equal(t, 1, bus.Stats()["later"].Backlog)

	var handled atomic.Int64
	require.NoError(t, bus.Subscribe("later", func(ctx context.Context, m Message) error {
		handled.Add(1)
		return nil
	}))
	waitIdle(t, bus)
	assert.Equal(t, int64(1), handled.Load())
}

func TestBusConsumerPoolStaysWithinMax(t *testing.T) {
	bus := newTestBus(t, Options{MinConsumers: 1, MaxConsumers: 3, MaxDeliveries: 1})

	var active, peak atomic.Int64
	require.NoError(t, bus.Subscribe("assign", func(ctx context.Context, m Message) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}))
	require.NoError(t, bus.Start(context.Background()))

	for i := 0; i < 30; i++ {
		require.NoError(t, bus.Publish(context.Background(), "assign", assignment(i)))
	}
	waitIdle(t, bus)

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Greater(t, peak.Load(), int64(1))
}

func TestBusRejectsSecondSubscriberAndInvalidMessages(t *testing.T) {
	bus := newTestBus(t, Options{})
	noop := func(ctx context.Context, m Message) error { return nil }

	require.NoError(t, bus.Subscribe("assign", noop))
	assert.Error(t, bus.Subscribe("assign", noop))

	err := bus.Publish(context.Background(), "assign", messages.Assignment{PhotoID: "1"})
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedResponse))
}

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher()
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, "a", assignment(0)))
	require.NoError(t, pub.Publish(ctx, "b", assignment(1)))
	require.NoError(t, pub.Publish(ctx, "a", assignment(2)))

	assert.Equal(t, 2, pub.Count("a"))
	assert.Equal(t, 3, pub.Count(""))

	decoded, err := DecodeAll[messages.Assignment](pub.Messages("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, []string{decoded[0].PhotoID, decoded[1].PhotoID})

	pub.FailOn = func(topic string, msg any) error { return errors.New("broker down") }
	assert.Error(t, pub.Publish(ctx, "a", assignment(3)))
	assert.Equal(t, 2, pub.Count("a"))
}
