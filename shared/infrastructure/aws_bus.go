package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/config"
	"github.com/pkg/errors"
)

var _ bus.Bus = (*AWSBus)(nil)

// AWSBus publishes through one SNS topic and consumes the service's SQS queue
type AWSBus struct {
	*SNSPublisher
	*SQSSubscriber
}

func NewAWSBus(publisher *SNSPublisher, subscriber *SQSSubscriber) *AWSBus {
	return &AWSBus{SNSPublisher: publisher, SQSSubscriber: subscriber}
}

// ConnectAWSBus loads the default AWS config (LocalStack when an endpoint is set)
func ConnectAWSBus(ctx context.Context, cfg config.AWS, logger *slog.Logger, opts ...SQSSubscriberOption) (*AWSBus, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewAWSBus(
		NewSNSPublisher(snsClient, cfg.SNSTopicArn),
		NewSQSSubscriber(sqsClient, cfg.SQSQueueURL, logger, opts...),
	), nil
}

// SQSOptions maps the configured poller tuning onto subscriber options, skipping unset values
func SQSOptions(cfg config.SQS) []SQSSubscriberOption {
	var opts []SQSSubscriberOption
	if cfg.Readers > 0 {
		opts = append(opts, WithReaders(cfg.Readers))
	}
	if cfg.Cleaners > 0 {
		opts = append(opts, WithCleaners(cfg.Cleaners))
	}
	if cfg.WaitTimeSeconds > 0 {
		opts = append(opts, WithWaitTimeSeconds(cfg.WaitTimeSeconds))
	}
	if cfg.VisibilityTimeout > 0 {
		opts = append(opts, WithVisibilityTimeout(cfg.VisibilityTimeout))
	}
	return opts
}

// Close stops polling and waits for in-flight handlers. The AWS clients need no closing.
func (b *AWSBus) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := b.SQSSubscriber.Stop(ctx); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}
	return nil
}

// drainTimeout bounds how long Close waits for in-flight handlers
var drainTimeout = 30 * time.Second
