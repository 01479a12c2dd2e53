// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package dr implements the cross-region DR pipeline stages. Each stage
// re-reads bucket state from S3 and only writes what differs, so any stage
// can be re-run on the same bucket.
package dr

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DestinationSuffix is appended to a source bucket name to name its replica.
const DestinationSuffix = "-dr"

// ErrVersioningNotEnabled is returned when versioning could not be
// switched on, which blocks replication.
var ErrVersioningNotEnabled = errors.New("versioning is not enabled")

// DestinationName returns the DR bucket name for source.
func DestinationName(source string) string {
	return source + DestinationSuffix
}

// Outcome is the result of one stage invocation.
type Outcome string

const (
	OutcomeOutOfScope         Outcome = "out_of_scope"
	OutcomeAlreadyEnabled     Outcome = "already_enabled"
	OutcomeHandedOff          Outcome = "handed_off"
	OutcomeReplicationEnabled Outcome = "replication_enabled"
	OutcomeFailed             Outcome = "failed"
)

// RuleTemplate carries the replication rule settings shared by every bucket.
type RuleTemplate struct {
	Role             string
	StorageClass     string
	ReplicaKMSKeyARN string
}

func (t RuleTemplate) forBucket(source string) storage.ReplicationRule {
	return storage.ReplicationRule{
		ID:                storage.DefaultRuleID,
		Role:              t.Role,
		DestinationBucket: DestinationName(source),
		StorageClass:      t.StorageClass,
		ReplicaKMSKeyARN:  t.ReplicaKMSKeyARN,
	}
}

// requireVersioning enables versioning on bucket and fails unless it
// reads back as Enabled.
func requireVersioning(ctx context.Context, b *storage.Buckets, bucket string) error {
	status, err := b.EnsureVersioning(ctx, bucket)
	if err != nil {
		return err
	}
	if status != s3types.BucketVersioningStatusEnabled {
		return fmt.Errorf("%s in %s: %w (status %q)", bucket, b.Region(), ErrVersioningNotEnabled, status)
	}
	return nil
}

// ensureDestination creates the destination bucket when absent, points its
// access logs at loggingBucket when set, and enables its versioning.
func ensureDestination(ctx context.Context, dest *storage.Buckets, name, loggingBucket string) error {
	log := logger.Ctx(ctx)

	exists, err := dest.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		log.Info().
			Str("destination", name).
			Str("region", dest.Region()).
			Msg("destination bucket already exists")
	} else {
		created, err := dest.Create(ctx, name, dest.Region())
		if err != nil {
			return err
		}
		if created {
			log.Info().
				Str("destination", name).
				Str("region", dest.Region()).
				Msg("destination bucket created")
		}
	}

	if loggingBucket != "" {
		if err := dest.EnableAccessLogging(ctx, name, loggingBucket, name+"/"); err != nil {
			log.Warn().
				Err(err).
				Str("destination", name).
				Str("logging_bucket", loggingBucket).
				Msg("failed to enable access logging on destination bucket")
		}
	}

	return requireVersioning(ctx, dest, name)
}

// enableReplication writes the replication rule for source unless an
// enabled rule already exists. Versioning is enabled on both buckets
// before any rule is written.
func enableReplication(ctx context.Context, source, dest *storage.Buckets, bucket string, tmpl RuleTemplate) (Outcome, error) {
	log := logger.Ctx(ctx)

	status, err := source.Replication(ctx, bucket)
	if err != nil {
		return OutcomeFailed, err
	}
	if status.Enabled {
		log.Warn().
			Str("bucket", bucket).
			Str("destination", status.Destination).
			Msg("cross region replication already enabled")
		return OutcomeAlreadyEnabled, nil
	}
	if !status.Configured {
		log.Info().Str("bucket", bucket).Msg("replication not configured yet")
	}

	destName := DestinationName(bucket)
	if err := requireVersioning(ctx, source, bucket); err != nil {
		return OutcomeFailed, err
	}
	if err := requireVersioning(ctx, dest, destName); err != nil {
		return OutcomeFailed, err
	}

	if err := source.PutReplication(ctx, bucket, tmpl.forBucket(bucket)); err != nil {
		return OutcomeFailed, err
	}

	log.Info().
		Str("bucket", bucket).
		Str("destination", destName).
		Str("region", dest.Region()).
		Bool("kms", tmpl.ReplicaKMSKeyARN != "").
		Msg("cross region replication enabled")
	return OutcomeReplicationEnabled, nil
}
