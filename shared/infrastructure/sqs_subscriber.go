package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/pkg/errors"
)

const (
	MessageIDKey        = "message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
)

var _ bus.Subscriber = (*SQSSubscriber)(nil)

// SQSClient is the part of the SQS API the subscriber needs
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSSubscriber reads one queue and routes messages to handlers by channel.
//
// Readers long-poll the queue, every message runs on the dispatcher and cleaners delete it
// once its handler returned. Failed messages are deleted too: there is no redelivery.
type SQSSubscriber struct {
	mux        sync.RWMutex
	handlers   map[bus.Channel]bus.Handler
	processed  chan types.Message
	cancel     context.CancelFunc
	running    atomic.Bool
	loops      sync.WaitGroup
	options    *sqsSubscriberOptions
	dispatcher *bus.Dispatcher
	logger     *slog.Logger

	client   SQSClient
	queueURL string
}

type sqsSubscriberOptions struct {
	readers                    int32
	cleaners                   int32
	maxNumberOfMessages        int32
	waitTimeSeconds            int32
	visibilityTimeout          int32
	sleepTimeAfterEmptyReceive time.Duration
	sleepTimeAfterError        time.Duration
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

func WithReaders(readers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.readers = readers
	}
}

func WithCleaners(cleaners int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.cleaners = cleaners
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.visibilityTimeout = timeout
	}
}

func WithWaitTimeSeconds(seconds int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
	}
}

// WithPollBackoff sets the pauses after an empty receive and after a receive error
func WithPollBackoff(afterEmpty, afterError time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.sleepTimeAfterEmptyReceive = afterEmpty
		o.sleepTimeAfterError = afterError
	}
}

// NewSQSSubscriber creates a subscriber for queueURL. Nothing is read until the first Subscribe.
func NewSQSSubscriber(client SQSClient, queueURL string, logger *slog.Logger, opts ...SQSSubscriberOption) *SQSSubscriber {
	options := &sqsSubscriberOptions{
		readers:                    1,
		cleaners:                   2,
		maxNumberOfMessages:        10,
		waitTimeSeconds:            15,
		visibilityTimeout:          30,
		sleepTimeAfterEmptyReceive: time.Second,
		sleepTimeAfterError:        20 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQSSubscriber{
		client:     client,
		queueURL:   queueURL,
		handlers:   make(map[bus.Channel]bus.Handler),
		processed:  make(chan types.Message, 64),
		options:    options,
		dispatcher: bus.NewDispatcher(logger),
		logger:     logger,
	}
}

// Subscribe registers handler for channel and starts polling on the first call.
// Polling stops when ctx is done or Stop is called.
func (s *SQSSubscriber) Subscribe(ctx context.Context, channel bus.Channel, handler bus.Handler) error {
	s.mux.Lock()
	s.handlers[channel] = handler
	s.mux.Unlock()

	return s.start(ctx)
}

func (s *SQSSubscriber) start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.running.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < int(s.options.readers); i++ {
		s.loops.Add(1)
		go s.startReader(ctx)
	}

	for i := 0; i < int(s.options.cleaners); i++ {
		s.loops.Add(1)
		go s.startCleaner(ctx)
	}

	s.running.Store(true)

	return nil
}

// Stop stops polling and waits for in-flight handlers. Messages whose handlers finish after
// the cleaners stopped become visible again once their visibility timeout expires.
func (s *SQSSubscriber) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.mux.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.running.Store(false)
	s.mux.Unlock()

	s.loops.Wait()

	return s.dispatcher.Wait(ctx)
}

func (s *SQSSubscriber) startReader(ctx context.Context) {
	defer s.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := s.read(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "failed to read from SQS", "queue_url", s.queueURL, slog.String("error", err.Error()))
				sleep(ctx, s.options.sleepTimeAfterError)
			}
		}
	}
}

func (s *SQSSubscriber) startCleaner(ctx context.Context) {
	defer s.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.processed:
			if err := s.clean(ctx, message); err != nil {
				s.logger.ErrorContext(ctx, "failed to delete SQS message",
					"message_id", aws.ToString(message.MessageId), slog.String("error", err.Error()))
			}
		}
	}
}

func (s *SQSSubscriber) read(ctx context.Context) error {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(s.queueURL),
		MaxNumberOfMessages:   s.options.maxNumberOfMessages,
		WaitTimeSeconds:       s.options.waitTimeSeconds,
		VisibilityTimeout:     s.options.visibilityTimeout,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to receive message from SQS")
	}

	if len(output.Messages) == 0 {
		sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		return nil
	}

	for _, message := range output.Messages {
		msg, err := decodeSQSMessage(message)
		if err != nil {
			s.logger.WarnContext(ctx, "dropping undecodable SQS message",
				"message_id", aws.ToString(message.MessageId), slog.String("error", err.Error()))
			s.settle(ctx, message)
			continue
		}

		s.mux.RLock()
		handler, ok := s.handlers[msg.Channel]
		s.mux.RUnlock()
		if !ok {
			// another stage's channel on a shared queue
			s.settle(ctx, message)
			continue
		}

		s.dispatcher.DispatchAndAck(ctx, handler, msg, func() { s.settle(ctx, message) })
	}

	return nil
}

// settle queues message for deletion unless polling already stopped
func (s *SQSSubscriber) settle(ctx context.Context, message types.Message) {
	select {
	case s.processed <- message:
	case <-ctx.Done():
	}
}

func (s *SQSSubscriber) clean(ctx context.Context, message types.Message) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete message from SQS")
	}
	return nil
}

// snsEnvelope is the body SQS receives from an SNS subscription without raw delivery
type snsEnvelope struct {
	Type              string `json:"Type"`
	Message           string `json:"Message"`
	MessageAttributes map[string]struct {
		Type  string `json:"Type"`
		Value string `json:"Value"`
	} `json:"MessageAttributes"`
}

// decodeSQSMessage accepts raw deliveries (channel as SQS attribute) and SNS envelopes
func decodeSQSMessage(message types.Message) (*bus.Message, error) {
	body := aws.ToString(message.Body)
	metadata := make(bus.Metadata)
	metadata[MessageIDKey] = aws.ToString(message.MessageId)
	if message.ReceiptHandle != nil {
		metadata[SQSReceiptHandleKey] = *message.ReceiptHandle
	}

	for k, v := range message.MessageAttributes {
		if v.StringValue != nil {
			metadata[k] = *v.StringValue
		}
	}

	if _, ok := metadata[channelMetadataKey]; !ok {
		var envelope snsEnvelope
		if err := json.Unmarshal([]byte(body), &envelope); err != nil || envelope.Type != "Notification" {
			return nil, errors.New("message has no channel attribute")
		}
		body = envelope.Message
		for k, v := range envelope.MessageAttributes {
			metadata[k] = v.Value
		}
	}

	channel, err := bus.NewChannel(metadata[channelMetadataKey])
	if err != nil {
		return nil, err
	}

	return &bus.Message{
		Channel:  channel,
		Payload:  body,
		Metadata: metadata,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
