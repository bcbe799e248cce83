package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/pkg/errors"
)

var _ bus.Publisher = (*SNSPublisher)(nil)

// SNSClient is the part of the SNS API the publisher needs
type SNSClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes every channel to a single topic. The channel travels as a message
// attribute so SQS subscription filter policies can route it.
type SNSPublisher struct {
	client   SNSClient
	topicArn string
}

func NewSNSPublisher(client SNSClient, topicArn string) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicArn: topicArn,
	}
}

// Publish sends the payload as the raw SNS message body
func (p *SNSPublisher) Publish(ctx context.Context, channel bus.Channel, payload string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Message:  aws.String(payload),
		MessageAttributes: map[string]types.MessageAttributeValue{
			channelMetadataKey: {
				DataType:    aws.String("String"),
				StringValue: aws.String(channel.String()),
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to publish to %s via SNS", channel)
	}
	return nil
}
