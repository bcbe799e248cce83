package bus

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Router maps channels to the handlers of one stage and subscribes them together
type Router struct {
	channels    []Channel
	handlers    map[Channel]Handler
	middlewares []Middleware
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[Channel]Handler),
	}
}

// Use appends middlewares; the first one registered is the outermost
func (r *Router) Use(middlewares ...Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

// Handle registers the handler for a channel, replacing any previous one
func (r *Router) Handle(channel Channel, handler Handler) {
	if _, exists := r.handlers[channel]; !exists {
		r.channels = append(r.channels, channel)
	}
	r.handlers[channel] = handler
}

// HandleFunc registers a function for a channel
func (r *Router) HandleFunc(channel Channel, fn func(ctx context.Context, msg *Message) error) {
	r.Handle(channel, HandlerFunc(fn))
}

// Channels returns the registered channels in registration order
func (r *Router) Channels() []Channel {
	channels := make([]Channel, len(r.channels))
	copy(channels, r.channels)
	return channels
}

// Handler returns the middleware-wrapped handler for a channel
func (r *Router) Handler(channel Channel) (Handler, bool) {
	handler, ok := r.handlers[channel]
	if !ok {
		return nil, false
	}
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler, true
}

// Run subscribes every registered channel. It returns once all subscriptions are active.
func (r *Router) Run(ctx context.Context, subscriber Subscriber) error {
	if len(r.channels) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	// subscriptions outlive Run, so they get ctx rather than a group context
	var g errgroup.Group
	for _, channel := range r.channels {
		handler, _ := r.Handler(channel)
		g.Go(func() error {
			if err := subscriber.Subscribe(ctx, channel, handler); err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
			}
			return nil
		})
	}

	return g.Wait()
}
