package infrastructure

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/logging"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewBus connects the bus driver selected by cfg.Bus.Driver
func NewBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bus.Bus, error) {
	wmLogger := logging.Watermill(logger)

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
		err        error
	)

	switch cfg.Bus.Driver {
	case config.BusDriverRedis:
		return ConnectRedisBus(ctx, &redis.Options{
			Addr:     cfg.Bus.Redis.Addr,
			Password: cfg.Bus.Redis.Password,
			DB:       cfg.Bus.Redis.DB,
		}, logger)
	case config.BusDriverAWS:
		return ConnectAWSBus(ctx, cfg.Bus.AWS, logger, SQSOptions(cfg.Bus.AWS.SQS)...)
	case config.BusDriverMemory:
		publisher, subscriber = memoryTransport(wmLogger)
	case config.BusDriverRabbitMQ:
		publisher, subscriber, err = rabbitTransport(cfg, wmLogger)
	case config.BusDriverKafka:
		publisher, subscriber, err = kafkaTransport(cfg, wmLogger)
	case config.BusDriverNATS:
		publisher, subscriber, err = natsTransport(cfg, wmLogger)
	default:
		return nil, errors.Errorf("unknown bus driver %q", cfg.Bus.Driver)
	}
	if err != nil {
		return nil, err
	}

	return NewWatermillBus(publisher, subscriber, logger), nil
}
