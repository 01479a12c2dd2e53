// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
)

// ProvisionerConfig configures the destination provisioner.
type ProvisionerConfig struct {
	// Destination is bound to the DR region.
	Destination *storage.Buckets

	Publisher notify.Publisher

	// Channel receives buckets whose destination is ready.
	Channel string

	// LoggingBucket receives destination access logs when set.
	LoggingBucket string
}

// Provisioner makes sure the "-dr" bucket exists and is versioned.
type Provisioner struct {
	dest          *storage.Buckets
	publisher     notify.Publisher
	channel       string
	loggingBucket string
}

func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	return &Provisioner{
		dest:          cfg.Destination,
		publisher:     cfg.Publisher,
		channel:       cfg.Channel,
		loggingBucket: cfg.LoggingBucket,
	}
}

// Handle provisions the destination of msg.BucketName. Nothing is
// published unless the destination's versioning reads back Enabled.
func (p *Provisioner) Handle(ctx context.Context, msg notify.Message) (Outcome, error) {
	ctx = logger.With(ctx, "bucket", msg.BucketName)
	outcome, err := p.handle(ctx, msg)
	record("provisioner", outcome)
	return outcome, err
}

func (p *Provisioner) handle(ctx context.Context, msg notify.Message) (Outcome, error) {
	destName := DestinationName(msg.BucketName)

	if err := ensureDestination(ctx, p.dest, destName, p.loggingBucket); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("destination", destName).
			Msg("failed to prepare DR destination bucket")
		return OutcomeFailed, err
	}

	if err := p.publisher.Publish(ctx, p.channel, msg); err != nil {
		return OutcomeFailed, fmt.Errorf("hand off %s: %w", msg.BucketName, err)
	}
	logger.Ctx(ctx).Info().
		Str("destination", destName).
		Msg("requested replication for bucket")
	return OutcomeHandedOff, nil
}
