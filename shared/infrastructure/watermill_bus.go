package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/pkg/errors"
)

const channelMetadataKey = "channel"

var _ bus.Bus = (*WatermillBus)(nil)

// WatermillBus puts a watermill publisher/subscriber pair behind bus.Bus.
//
// Messages are acked on receipt and handed to the dispatcher, so a slow handler never holds
// back the next delivery on the same channel.
type WatermillBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	dispatcher *bus.Dispatcher
	logger     *slog.Logger

	mux    sync.Mutex
	closed bool
	cancel []context.CancelFunc
	loops  sync.WaitGroup
}

// NewWatermillBus wraps publisher and subscriber. They may be the same value (GoChannel).
func NewWatermillBus(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger) *WatermillBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatermillBus{
		publisher:  publisher,
		subscriber: subscriber,
		dispatcher: bus.NewDispatcher(logger),
		logger:     logger,
	}
}

func (b *WatermillBus) Publish(ctx context.Context, channel bus.Channel, payload string) error {
	if b.isClosed() {
		return bus.ErrBusClosed
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(payload))
	msg.Metadata.Set(channelMetadataKey, channel.String())
	msg.SetContext(ctx)

	if err := b.publisher.Publish(channel.String(), msg); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", channel)
	}
	return nil
}

func (b *WatermillBus) Subscribe(ctx context.Context, channel bus.Channel, handler bus.Handler) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.closed {
		return bus.ErrBusClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	messages, err := b.subscriber.Subscribe(subCtx, channel.String())
	if err != nil {
		cancel()
		return errors.Wrapf(err, "failed to subscribe to %s", channel)
	}
	b.cancel = append(b.cancel, cancel)

	b.loops.Add(1)
	go func() {
		defer b.loops.Done()
		for msg := range messages {
			delivered := bus.NewMessage(channel, string(msg.Payload))
			delivered.Metadata = bus.Metadata(msg.Metadata).Clone()
			delivered.Metadata[MessageIDKey] = msg.UUID
			msg.Ack()

			b.dispatcher.Dispatch(subCtx, handler, delivered)
		}
	}()

	return nil
}

// Close stops delivery, waits for in-flight handlers and closes the transport
func (b *WatermillBus) Close() error {
	b.mux.Lock()
	if b.closed {
		b.mux.Unlock()
		return nil
	}
	b.closed = true
	cancels := b.cancel
	b.cancel = nil
	b.mux.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.loops.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := b.dispatcher.Wait(ctx); err != nil {
		b.logger.Warn("in-flight handlers did not finish before close", slog.String("error", err.Error()))
	}

	var errs []error
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close subscriber"))
	}
	if any(b.publisher) != any(b.subscriber) {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close publisher"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing bus: %v", errs)
	}
	return nil
}

func (b *WatermillBus) isClosed() bool {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.closed
}
