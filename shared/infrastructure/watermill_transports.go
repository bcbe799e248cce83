package infrastructure

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/draftea/order-flow/shared/config"
	"github.com/pkg/errors"
)

// Transport factories are variables so tests can replace the broker clients
var (
	GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
		pubSub := gochannel.NewGoChannel(cfg, logger)
		return pubSub, pubSub
	}

	AmqpConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
		return amqp.NewConnection(cfg, logger)
	}
	AmqpPublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
		return amqp.NewPublisherWithConnection(cfg, logger, conn)
	}
	AmqpSubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
		return amqp.NewSubscriberWithConnection(cfg, logger, conn)
	}

	KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(cfg, logger)
	}
	KafkaSubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return kafka.NewSubscriber(cfg, logger)
	}

	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nats.NewSubscriber(cfg, logger)
	}
)

// memoryTransport is a single in-process pub/sub. Topics without subscribers drop messages.
func memoryTransport(logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	return GoChannelFactory(gochannel.Config{OutputChannelBuffer: 256}, logger)
}

// rabbitTransport gives every service its own durable queue per channel, so each stage
// receives every message published on the channels it subscribed to.
func rabbitTransport(cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	amqpConfig := amqp.NewDurablePubSubConfig(
		cfg.Bus.RabbitMQ.URL,
		amqp.GenerateQueueNameTopicNameWithSuffix("-"+cfg.ServiceName),
	)

	conn, err := AmqpConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   cfg.Bus.RabbitMQ.URL,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to rabbitmq")
	}

	publisher, err := AmqpPublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "failed to create rabbitmq publisher")
	}

	subscriber, err := AmqpSubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = publisher.Close()
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "failed to create rabbitmq subscriber")
	}

	return publisher, subscriber, nil
}

func kafkaTransport(cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	publisher, err := KafkaPublisherFactory(kafka.PublisherConfig{
		Brokers:   cfg.Bus.Kafka.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create kafka publisher")
	}

	subscriber, err := KafkaSubscriberFactory(kafka.SubscriberConfig{
		Brokers:       cfg.Bus.Kafka.Brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: cfg.Bus.Kafka.ConsumerGroup,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, errors.Wrap(err, "failed to create kafka subscriber")
	}

	return publisher, subscriber, nil
}

// natsTransport uses core NATS subjects without queue groups, so every subscriber of a
// channel receives each message and nothing is kept for late subscribers.
func natsTransport(cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	marshaler := &nats.NATSMarshaler{}
	coreNATS := nats.JetStreamConfig{Disabled: true}

	publisher, err := NATSPublisherFactory(nats.PublisherConfig{
		URL:       cfg.Bus.NATS.URL,
		Marshaler: marshaler,
		JetStream: coreNATS,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create nats publisher")
	}

	subscriber, err := NATSSubscriberFactory(nats.SubscriberConfig{
		URL:         cfg.Bus.NATS.URL,
		Unmarshaler: marshaler,
		JetStream:   coreNATS,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, errors.Wrap(err, "failed to create nats subscriber")
	}

	return publisher, subscriber, nil
}
