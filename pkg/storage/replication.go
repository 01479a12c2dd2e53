// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultRuleID names the replication rule written by s3dr.
const DefaultRuleID = "s3dr-replication"

// ReplicationStatus describes the first replication rule of a bucket.
type ReplicationStatus struct {
	// Configured is false when the bucket has no replication configuration.
	Configured bool

	// Enabled is true when the first rule exists and is not Disabled.
	Enabled bool

	// Destination is the destination bucket ARN of the first rule.
	Destination string
}

// ReplicationRule is the single rule s3dr writes.
type ReplicationRule struct {
	ID string

	// Role is the IAM role ARN S3 assumes to replicate.
	Role string

	// DestinationBucket is the destination bucket name, not its ARN.
	DestinationBucket string

	// StorageClass of replicas; empty means STANDARD.
	StorageClass string

	// ReplicaKMSKeyARN enables replication of SSE-KMS objects when set.
	ReplicaKMSKeyARN string
}

// BucketARN returns the S3 ARN of bucket.
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}

// Replication reads the bucket's replication configuration. A missing
// configuration is reported through ReplicationStatus, not as an error.
func (b *Buckets) Replication(ctx context.Context, bucket string) (ReplicationStatus, error) {
	start := time.Now()
	out, err := b.api.GetBucketReplication(ctx, &s3.GetBucketReplicationInput{
		Bucket: aws.String(bucket),
	})
	if IsReplicationNotFound(err) {
		observe("get_bucket_replication", start, nil)
		return ReplicationStatus{}, nil
	}
	observe("get_bucket_replication", start, err)
	if err != nil {
		return ReplicationStatus{}, fmt.Errorf("get replication for %s: %w", bucket, err)
	}

	if out.ReplicationConfiguration == nil || len(out.ReplicationConfiguration.Rules) == 0 {
		return ReplicationStatus{}, nil
	}

	rule := out.ReplicationConfiguration.Rules[0]
	status := ReplicationStatus{
		Configured: true,
		Enabled:    rule.Status != s3types.ReplicationRuleStatusDisabled,
	}
	if rule.Destination != nil {
		status.Destination = aws.ToString(rule.Destination.Bucket)
	}
	return status, nil
}

// PutReplication replaces the bucket's replication configuration with rule.
func (b *Buckets) PutReplication(ctx context.Context, bucket string, rule ReplicationRule) error {
	if rule.Role == "" {
		return errors.New("replication role is required")
	}
	if rule.DestinationBucket == "" {
		return errors.New("destination bucket is required")
	}

	start := time.Now()
	_, err := b.api.PutBucketReplication(ctx, &s3.PutBucketReplicationInput{
		Bucket: aws.String(bucket),
		ReplicationConfiguration: &s3types.ReplicationConfiguration{
			Role:  aws.String(rule.Role),
			Rules: []s3types.ReplicationRule{rule.toS3()},
		},
	})
	observe("put_bucket_replication", start, err)
	if err != nil {
		return fmt.Errorf("put replication for %s: %w", bucket, err)
	}
	return nil
}

func (r ReplicationRule) toS3() s3types.ReplicationRule {
	id := r.ID
	if id == "" {
		id = DefaultRuleID
	}
	storageClass := s3types.StorageClass(r.StorageClass)
	if storageClass == "" {
		storageClass = s3types.StorageClassStandard
	}

	rule := s3types.ReplicationRule{
		ID:     aws.String(id),
		Prefix: aws.String(""),
		Status: s3types.ReplicationRuleStatusEnabled,
		Destination: &s3types.Destination{
			Bucket:       aws.String(BucketARN(r.DestinationBucket)),
			StorageClass: storageClass,
		},
	}

	if r.ReplicaKMSKeyARN != "" {
		rule.SourceSelectionCriteria = &s3types.SourceSelectionCriteria{
			SseKmsEncryptedObjects: &s3types.SseKmsEncryptedObjects{
				Status: s3types.SseKmsEncryptedObjectsStatusEnabled,
			},
		}
		rule.Destination.EncryptionConfiguration = &s3types.EncryptionConfiguration{
			ReplicaKmsKeyID: aws.String(r.ReplicaKMSKeyARN),
		}
	}

	return rule
}

// ResolveKeyARN turns a KMS key id, alias or ARN into the key ARN.
func ResolveKeyARN(ctx context.Context, api KMSAPI, keyID string) (string, error) {
	out, err := api.DescribeKey(ctx, &kms.DescribeKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return "", fmt.Errorf("describe kms key %s: %w", keyID, err)
	}
	if out.KeyMetadata == nil || out.KeyMetadata.Arn == nil {
		return "", fmt.Errorf("kms key %s has no ARN", keyID)
	}
	return *out.KeyMetadata.Arn, nil
}
