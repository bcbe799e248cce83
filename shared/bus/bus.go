package bus

import (
	"context"
	"errors"
)

var (
	ErrInvalidChannel = errors.New("invalid channel")
	ErrBusClosed      = errors.New("bus is closed")
)

// Channel names a pub/sub channel on the bus
type Channel string

// Channels connecting the order processing stages
const (
	PaymentRequests     Channel = "payment-requests"
	FulfillmentRequests Channel = "fulfillment-requests"
	OrderFailures       Channel = "order-failures"
)

func NewChannel(channel string) (Channel, error) {
	if channel == "" {
		return "", ErrInvalidChannel
	}
	return Channel(channel), nil
}

func (c Channel) String() string {
	return string(c)
}

// Metadata carries transport level attributes of a delivered message
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Message is one delivery on a channel. Payload is the bit-exact wire contract.
type Message struct {
	Channel  Channel
	Payload  string
	Metadata Metadata
}

// NewMessage creates a message for the given channel
func NewMessage(channel Channel, payload string) *Message {
	return &Message{
		Channel:  channel,
		Payload:  payload,
		Metadata: make(Metadata),
	}
}

// Publisher hands payloads to the bus
type Publisher interface {
	Publish(ctx context.Context, channel Channel, payload string) error
}

// Subscriber delivers every message published on a channel to the handler
type Subscriber interface {
	Subscribe(ctx context.Context, channel Channel, handler Handler) error
}

// Bus is a publish/subscribe transport shared by all handlers of a process.
// Implementations must be safe for concurrent Publish calls.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Handler handles one message
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Middleware decorates a handler
type Middleware func(Handler) Handler
