// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the subset of the SNS client used for publishing.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ SNSAPI = (*sns.Client)(nil)

// SNSPublisher publishes hand-offs to SNS topics; the channel is the topic ARN.
// Delivery to the next stage's Lambda subscription is handled by SNS.
type SNSPublisher struct {
	client SNSAPI
}

// NewSNSPublisher wraps an SNS client.
func NewSNSPublisher(client SNSAPI) (*SNSPublisher, error) {
	if client == nil {
		return nil, errors.New("sns client is required")
	}
	return &SNSPublisher{client: client}, nil
}

// Name returns the publisher identifier.
func (p *SNSPublisher) Name() string {
	return "sns"
}

// Publish sends msg to the topic ARN in channel.
func (p *SNSPublisher) Publish(ctx context.Context, channel string, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(channel),
		Message:  aws.String(string(body)),
	})
	observePublish(p.Name(), start, err)
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", channel, err)
	}

	logger.Ctx(ctx).Debug().
		Str("topic", channel).
		Str("bucket", msg.BucketName).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("published message to sns")

	return nil
}

// Close is a no-op; the SDK client has no connection to release.
func (p *SNSPublisher) Close() error {
	return nil
}
