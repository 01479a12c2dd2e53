// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package storagetest provides an in-memory S3 bucket-configuration fake
// that answers with the same error shapes as the real service.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/LeeDigitalWorks/s3dr/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var _ storage.API = (*Fake)(nil)

// Bucket is the fake's view of one bucket.
type Bucket struct {
	Region      string
	Tags        []s3types.Tag // nil means no tag set
	Versioning  s3types.BucketVersioningStatus
	Replication *s3types.ReplicationConfiguration
	Logging     *s3types.LoggingEnabled
}

// Fake is a concurrency-safe in-memory S3. Buckets are shared between
// fakes created with the same backing store, so a source-region and a
// DR-region client see one account.
type Fake struct {
	region string
	store  *store

	// IgnoreVersioningPuts simulates a bucket whose versioning refuses to change.
	IgnoreVersioningPuts bool
}

type store struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
	calls   map[string]int
	errs    map[string]error
}

// New returns a fake bound to region with an empty account.
func New(region string) *Fake {
	return &Fake{
		region: region,
		store: &store{
			buckets: make(map[string]*Bucket),
			calls:   make(map[string]int),
			errs:    make(map[string]error),
		},
	}
}

// InRegion returns a fake bound to another region over the same account.
func (f *Fake) InRegion(region string) *Fake {
	return &Fake{region: region, store: f.store}
}

// AddBucket seeds a bucket.
func (f *Fake) AddBucket(name string, b Bucket) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if b.Region == "" {
		b.Region = f.region
	}
	f.store.buckets[name] = &b
}

// Bucket returns a copy of the named bucket.
func (f *Fake) Bucket(name string) (Bucket, bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	b, ok := f.store.buckets[name]
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

// FailOn makes every call of op return err until cleared with a nil err.
func (f *Fake) FailOn(op string, err error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if err == nil {
		delete(f.store.errs, op)
		return
	}
	f.store.errs[op] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.calls[op]
}

// APIError builds a service error with the given code.
func APIError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *Fake) begin(op, bucket string) (*Bucket, error) {
	f.store.calls[op]++
	if err := f.store.errs[op]; err != nil {
		return nil, err
	}
	b, ok := f.store.buckets[bucket]
	if !ok {
		return nil, &s3types.NoSuchBucket{Message: aws.String(fmt.Sprintf("bucket %s does not exist", bucket))}
	}
	return b, nil
}

func (f *Fake) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	f.store.calls["HeadBucket"]++
	if err := f.store.errs["HeadBucket"]; err != nil {
		return nil, err
	}
	b, ok := f.store.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadBucketOutput{BucketRegion: aws.String(b.Region)}, nil
}

func (f *Fake) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	f.store.calls["CreateBucket"]++
	if err := f.store.errs["CreateBucket"]; err != nil {
		return nil, err
	}

	name := aws.ToString(in.Bucket)
	if _, ok := f.store.buckets[name]; ok {
		return nil, &s3types.BucketAlreadyOwnedByYou{}
	}

	region := "us-east-1"
	if in.CreateBucketConfiguration != nil && in.CreateBucketConfiguration.LocationConstraint != "" {
		region = string(in.CreateBucketConfiguration.LocationConstraint)
	}
	if region != f.region {
		return nil, APIError("IllegalLocationConstraintException")
	}

	f.store.buckets[name] = &Bucket{Region: region}
	return &s3.CreateBucketOutput{Location: aws.String("/" + name)}, nil
}

func (f *Fake) GetBucketTagging(ctx context.Context, in *s3.GetBucketTaggingInput, _ ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("GetBucketTagging", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	if b.Tags == nil {
		return nil, APIError("NoSuchTagSet")
	}
	return &s3.GetBucketTaggingOutput{TagSet: append([]s3types.Tag(nil), b.Tags...)}, nil
}

func (f *Fake) GetBucketVersioning(ctx context.Context, in *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("GetBucketVersioning", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	return &s3.GetBucketVersioningOutput{Status: b.Versioning}, nil
}

func (f *Fake) PutBucketVersioning(ctx context.Context, in *s3.PutBucketVersioningInput, _ ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("PutBucketVersioning", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	if !f.IgnoreVersioningPuts && in.VersioningConfiguration != nil {
		b.Versioning = in.VersioningConfiguration.Status
	}
	return &s3.PutBucketVersioningOutput{}, nil
}

func (f *Fake) GetBucketReplication(ctx context.Context, in *s3.GetBucketReplicationInput, _ ...func(*s3.Options)) (*s3.GetBucketReplicationOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("GetBucketReplication", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	if b.Replication == nil {
		return nil, APIError("ReplicationConfigurationNotFoundError")
	}
	cfg := *b.Replication
	return &s3.GetBucketReplicationOutput{ReplicationConfiguration: &cfg}, nil
}

func (f *Fake) PutBucketReplication(ctx context.Context, in *s3.PutBucketReplicationInput, _ ...func(*s3.Options)) (*s3.PutBucketReplicationOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("PutBucketReplication", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	if b.Versioning != s3types.BucketVersioningStatusEnabled {
		return nil, APIError("InvalidRequest")
	}
	if in.ReplicationConfiguration == nil {
		return nil, APIError("MalformedXML")
	}
	cfg := *in.ReplicationConfiguration
	b.Replication = &cfg
	return &s3.PutBucketReplicationOutput{}, nil
}

func (f *Fake) PutBucketLogging(ctx context.Context, in *s3.PutBucketLoggingInput, _ ...func(*s3.Options)) (*s3.PutBucketLoggingOutput, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	b, err := f.begin("PutBucketLogging", aws.ToString(in.Bucket))
	if err != nil {
		return nil, err
	}
	if in.BucketLoggingStatus != nil {
		b.Logging = in.BucketLoggingStatus.LoggingEnabled
	}
	return &s3.PutBucketLoggingOutput{}, nil
}
