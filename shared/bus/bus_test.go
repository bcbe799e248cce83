package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	handlers map[Channel]Handler
	err      error
}

func (s *recordingSubscriber) Subscribe(ctx context.Context, channel Channel, handler Handler) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[Channel]Handler)
	}
	s.handlers[channel] = handler
	return nil
}

func TestMetadata_CloneIsIndependent(t *testing.T) {
	original := Metadata{"message-id": "abc"}
	clone := original.Clone()
	clone["message-id"] = "xyz"

	id, ok := original.Get("message-id")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = Metadata(nil).Clone().Get("missing")
	assert.False(t, ok)
}

func TestNewChannel(t *testing.T) {
	_, err := NewChannel("")
	assert.ErrorIs(t, err, ErrInvalidChannel)

	channel, err := NewChannel("payment-requests")
	require.NoError(t, err)
	assert.Equal(t, PaymentRequests, channel)
}

func TestRouter_Run(t *testing.T) {
	router := NewRouter()
	var order []string
	router.Use(
		func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, msg *Message) error {
				order = append(order, "outer")
				return next.Handle(ctx, msg)
			})
		},
		func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, msg *Message) error {
				order = append(order, "inner")
				return next.Handle(ctx, msg)
			})
		},
	)
	router.HandleFunc(PaymentRequests, func(ctx context.Context, msg *Message) error {
		order = append(order, "handler:"+msg.Payload)
		return nil
	})
	router.HandleFunc(OrderFailures, func(ctx context.Context, msg *Message) error { return nil })

	sub := &recordingSubscriber{}
	require.NoError(t, router.Run(context.Background(), sub))

	assert.Equal(t, []Channel{PaymentRequests, OrderFailures}, router.Channels())
	require.Len(t, sub.handlers, 2)

	err := sub.handlers[PaymentRequests].Handle(context.Background(), NewMessage(PaymentRequests, "order-1|10"))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler:order-1|10"}, order)
}

func TestRouter_RunWithoutHandlers(t *testing.T) {
	err := NewRouter().Run(context.Background(), &recordingSubscriber{})
	assert.Error(t, err)
}

func TestRouter_RunSubscribeError(t *testing.T) {
	router := NewRouter()
	router.HandleFunc(FulfillmentRequests, func(ctx context.Context, msg *Message) error { return nil })

	err := router.Run(context.Background(), &recordingSubscriber{err: errors.New("connection refused")})
	assert.ErrorContains(t, err, "failed to subscribe to fulfillment-requests")
}

func TestDispatcher_RunsHandlersConcurrently(t *testing.T) {
	dispatcher := NewDispatcher(nil)

	release := make(chan struct{})
	var started atomic.Int32
	handler := HandlerFunc(func(ctx context.Context, msg *Message) error {
		started.Add(1)
		<-release
		return nil
	})

	for i := 0; i < 5; i++ {
		dispatcher.Dispatch(context.Background(), handler, NewMessage(PaymentRequests, "x"))
	}

	assert.Eventually(t, func() bool { return started.Load() == 5 }, time.Second, 5*time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, dispatcher.Wait(ctx))
}

func TestDispatcher_HandlerOutlivesSubscriptionContext(t *testing.T) {
	dispatcher := NewDispatcher(nil)

	ctx, cancel := context.WithCancel(context.Background())
	var handlerErr atomic.Value
	release := make(chan struct{})
	dispatcher.Dispatch(ctx, HandlerFunc(func(hctx context.Context, msg *Message) error {
		<-release
		if err := hctx.Err(); err != nil {
			handlerErr.Store(err)
		}
		return nil
	}), NewMessage(FulfillmentRequests, "order-1"))

	cancel()
	close(release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, dispatcher.Wait(waitCtx))
	assert.Nil(t, handlerErr.Load())
}

func TestDispatcher_ContainsPanicsAndErrors(t *testing.T) {
	dispatcher := NewDispatcher(nil)

	dispatcher.Dispatch(context.Background(), HandlerFunc(func(ctx context.Context, msg *Message) error {
		panic("boom")
	}), NewMessage(OrderFailures, "garbage"))
	dispatcher.Dispatch(context.Background(), HandlerFunc(func(ctx context.Context, msg *Message) error {
		return errors.New("publish failed")
	}), NewMessage(OrderFailures, "garbage"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, dispatcher.Wait(ctx))
}

func TestDispatcher_WaitTimesOut(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	release := make(chan struct{})
	defer close(release)

	dispatcher.Dispatch(context.Background(), HandlerFunc(func(ctx context.Context, msg *Message) error {
		<-release
		return nil
	}), NewMessage(PaymentRequests, "x"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, dispatcher.Wait(ctx), context.DeadlineExceeded)
}

func TestDispatcher_AcksAfterPanic(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	var acked atomic.Int32

	dispatcher.DispatchAndAck(context.Background(), HandlerFunc(func(ctx context.Context, msg *Message) error {
		panic("boom")
	}), NewMessage(FulfillmentRequests, "order-1"), func() { acked.Add(1) })
	dispatcher.DispatchAndAck(context.Background(), HandlerFunc(func(ctx context.Context, msg *Message) error {
		return nil
	}), NewMessage(FulfillmentRequests, "order-2"), func() { acked.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Wait(ctx))
	assert.Equal(t, int32(2), acked.Load())
}
