package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher runs every inbound message on its own goroutine.
//
// Handlers are detached from the subscription context: once a handler starts it runs to
// completion. Errors and panics stay local to the invocation; they are logged and never
// reach the transport or any other stage.
type Dispatcher struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher logging through the given logger
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Dispatch hands the message to the handler without waiting for it
func (d *Dispatcher) Dispatch(ctx context.Context, handler Handler, msg *Message) {
	d.DispatchAndAck(ctx, handler, msg, nil)
}

// DispatchAndAck is Dispatch for transports that settle a message once its handler returned.
// ack runs whether the handler succeeded, failed or panicked.
func (d *Dispatcher) DispatchAndAck(ctx context.Context, handler Handler, msg *Message, ack func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if ack != nil {
			defer ack()
		}
		d.run(context.WithoutCancel(ctx), handler, msg)
	}()
}

func (d *Dispatcher) run(ctx context.Context, handler Handler, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "handler panicked",
				slog.String("channel", msg.Channel.String()),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := handler.Handle(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "handler failed",
			slog.String("channel", msg.Channel.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Wait blocks until in-flight handlers finish or ctx is done.
// Call it only after the transport stopped delivering.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
