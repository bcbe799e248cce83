package telemetry

import (
	"context"
	"time"

	"github.com/draftea/order-flow/shared/bus"
	"go.opentelemetry.io/otel/attribute"
)

// HandlerMiddleware injects telemetry into the handler context and records delivery metrics
func HandlerMiddleware(tel *Telemetry) bus.Middleware {
	return func(next bus.Handler) bus.Handler {
		return bus.HandlerFunc(func(ctx context.Context, msg *bus.Message) error {
			start := time.Now()
			ctx = WithTelemetry(ctx, tel)

			err := next.Handle(ctx, msg)

			status := "success"
			if err != nil {
				status = "error"
			}

			RecordCounter(ctx, "bus_messages_handled_total", "Total bus messages handled", 1,
				attribute.String("channel", msg.Channel.String()),
				attribute.String("status", status),
			)
			RecordHistogram(ctx, "bus_message_duration_seconds", "Bus message handling duration", time.Since(start).Seconds(),
				attribute.String("channel", msg.Channel.String()),
			)

			return err
		})
	}
}
