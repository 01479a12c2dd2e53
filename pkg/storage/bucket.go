// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// usEast1 rejects an explicit LocationConstraint.
const usEast1 = "us-east-1"

// Buckets performs bucket-level configuration against one S3 endpoint.
type Buckets struct {
	api    API
	region string
}

// NewBuckets wraps an S3 client bound to region.
func NewBuckets(api API, region string) *Buckets {
	return &Buckets{api: api, region: region}
}

// Region returns the region the client is bound to.
func (b *Buckets) Region() string {
	return b.region
}

// Tags returns the bucket's normalized tag set. A bucket without tags
// yields an empty set and no error.
func (b *Buckets) Tags(ctx context.Context, bucket string) (tags.Set, error) {
	start := time.Now()
	out, err := b.api.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
		Bucket: aws.String(bucket),
	})
	observe("get_bucket_tagging", start, err)
	if err != nil {
		if IsNoTagSet(err) {
			return tags.Set{}, nil
		}
		return tags.Set{}, fmt.Errorf("get tagging for %s: %w", bucket, err)
	}
	return tags.FromS3(out.TagSet), nil
}

// VersioningStatus returns the bucket's versioning status; "" when
// versioning was never configured.
func (b *Buckets) VersioningStatus(ctx context.Context, bucket string) (s3types.BucketVersioningStatus, error) {
	start := time.Now()
	out, err := b.api.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
		Bucket: aws.String(bucket),
	})
	observe("get_bucket_versioning", start, err)
	if err != nil {
		return "", fmt.Errorf("get versioning for %s: %w", bucket, err)
	}
	return out.Status, nil
}

// EnsureVersioning enables versioning unless it is already Enabled and
// returns the status read back afterwards.
func (b *Buckets) EnsureVersioning(ctx context.Context, bucket string) (s3types.BucketVersioningStatus, error) {
	log := logger.Ctx(ctx)

	status, err := b.VersioningStatus(ctx, bucket)
	if err != nil {
		return "", err
	}
	log.Info().
		Str("bucket", bucket).
		Str("status", statusString(status)).
		Msg("current versioning status")

	if status == s3types.BucketVersioningStatusEnabled {
		return status, nil
	}

	start := time.Now()
	_, err = b.api.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	observe("put_bucket_versioning", start, err)
	if err != nil {
		return status, fmt.Errorf("enable versioning for %s: %w", bucket, err)
	}

	status, err = b.VersioningStatus(ctx, bucket)
	if err != nil {
		return "", err
	}
	log.Info().
		Str("bucket", bucket).
		Str("status", statusString(status)).
		Msg("updated versioning status")

	return status, nil
}

// Exists reports whether the bucket exists and is reachable by the caller.
func (b *Buckets) Exists(ctx context.Context, bucket string) (bool, error) {
	start := time.Now()
	_, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if IsBucketNotFound(err) {
		observe("head_bucket", start, nil)
		return false, nil
	}
	observe("head_bucket", start, err)
	if err != nil {
		return false, fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return true, nil
}

// Create creates the bucket in region. It reports false when the caller
// already owned the bucket.
func (b *Buckets) Create(ctx context.Context, bucket, region string) (bool, error) {
	in := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	if region != "" && region != usEast1 {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	start := time.Now()
	_, err := b.api.CreateBucket(ctx, in)
	if IsAlreadyOwned(err) {
		observe("create_bucket", start, nil)
		return false, nil
	}
	observe("create_bucket", start, err)
	if err != nil {
		return false, fmt.Errorf("create bucket %s in %s: %w", bucket, region, err)
	}
	return true, nil
}

// EnableAccessLogging sends server access logs of bucket to target under prefix.
func (b *Buckets) EnableAccessLogging(ctx context.Context, bucket, target, prefix string) error {
	start := time.Now()
	_, err := b.api.PutBucketLogging(ctx, &s3.PutBucketLoggingInput{
		Bucket: aws.String(bucket),
		BucketLoggingStatus: &s3types.BucketLoggingStatus{
			LoggingEnabled: &s3types.LoggingEnabled{
				TargetBucket: aws.String(target),
				TargetPrefix: aws.String(prefix),
			},
		},
	})
	observe("put_bucket_logging", start, err)
	if err != nil {
		return fmt.Errorf("enable access logging for %s: %w", bucket, err)
	}
	return nil
}

func statusString(s s3types.BucketVersioningStatus) string {
	if s == "" {
		return "None"
	}
	return string(s)
}
