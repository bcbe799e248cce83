package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/draftea/order-flow/shared/bus"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ bus.Bus = (*RedisBus)(nil)

// RedisBus implements bus.Bus on Redis PUBLISH/SUBSCRIBE.
// Delivery is fire-and-forget: a channel without subscribers drops the message.
type RedisBus struct {
	client     *redis.Client
	dispatcher *bus.Dispatcher
	logger     *slog.Logger

	mux     sync.Mutex
	closed  bool
	pubsubs []*redis.PubSub
	loops   sync.WaitGroup
}

// NewRedisBus creates a bus on top of an existing client. The bus owns the client.
func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		client:     client,
		dispatcher: bus.NewDispatcher(logger),
		logger:     logger,
	}
}

// ConnectRedisBus dials Redis and checks the connection
func ConnectRedisBus(ctx context.Context, opts *redis.Options, logger *slog.Logger) (*RedisBus, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", opts.Addr)
	}
	return NewRedisBus(client, logger), nil
}

func (b *RedisBus) Publish(ctx context.Context, channel bus.Channel, payload string) error {
	if err := b.client.Publish(ctx, channel.String(), payload).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return bus.ErrBusClosed
		}
		return errors.Wrapf(err, "failed to publish to %s", channel)
	}
	return nil
}

// Subscribe returns once Redis confirmed the subscription
func (b *RedisBus) Subscribe(ctx context.Context, channel bus.Channel, handler bus.Handler) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.closed {
		return bus.ErrBusClosed
	}

	pubsub := b.client.Subscribe(ctx, channel.String())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return errors.Wrapf(err, "failed to subscribe to %s", channel)
	}
	b.pubsubs = append(b.pubsubs, pubsub)

	messages := pubsub.Channel()
	b.loops.Add(1)
	go func() {
		defer b.loops.Done()
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.dispatcher.Dispatch(ctx, handler, bus.NewMessage(channel, msg.Payload))
			}
		}
	}()

	return nil
}

// Close stops delivery, waits for in-flight handlers and closes the client
func (b *RedisBus) Close() error {
	b.mux.Lock()
	if b.closed {
		b.mux.Unlock()
		return nil
	}
	b.closed = true
	pubsubs := b.pubsubs
	b.pubsubs = nil
	b.mux.Unlock()

	var errs []error
	for _, pubsub := range pubsubs {
		if err := pubsub.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, errors.Wrap(err, "failed to close subscription"))
		}
	}
	b.loops.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := b.dispatcher.Wait(ctx); err != nil {
		b.logger.Warn("in-flight handlers did not finish before close", slog.String("error", err.Error()))
	}

	if err := b.client.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close redis client"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing bus: %v", errs)
	}
	return nil
}
