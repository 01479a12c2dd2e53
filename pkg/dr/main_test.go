// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"
	"sync"
	"testing"

	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage/storagetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	sourceRegion = "us-west-2"
	destRegion   = "us-east-2"

	provisionChannel   = "arn:aws:sns:us-west-2:123456789012:dr-provision"
	replicationChannel = "arn:aws:sns:us-west-2:123456789012:dr-replicate"
	roleARN            = "arn:aws:iam::123456789012:role/s3dr-replication"
)

type published struct {
	Channel string
	Bucket  string
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(ctx context.Context, channel string, msg notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{Channel: channel, Bucket: msg.BucketName})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func messageFor(p published) notify.Message {
	return notify.Message{BucketName: p.Bucket}
}

func (p *recordingPublisher) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.sent...)
}

// account is one fake S3 account seen from both regions.
type account struct {
	src  *storagetest.Fake
	dst  *storagetest.Fake
	pub  *recordingPublisher
	from *storage.Buckets
	to   *storage.Buckets
}

func newAccount() *account {
	src := storagetest.New(sourceRegion)
	dst := src.InRegion(destRegion)
	return &account{
		src:  src,
		dst:  dst,
		pub:  &recordingPublisher{},
		from: storage.NewBuckets(src, sourceRegion),
		to:   storage.NewBuckets(dst, destRegion),
	}
}

func drTag(key, value string) []s3types.Tag {
	return []s3types.Tag{{Key: aws.String(key), Value: aws.String(value)}}
}

func (a *account) versioning(t *testing.T, bucket string) s3types.BucketVersioningStatus {
	t.Helper()
	b, ok := a.src.Bucket(bucket)
	if !ok {
		t.Fatalf("bucket %s does not exist", bucket)
	}
	return b.Versioning
}
