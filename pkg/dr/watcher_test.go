// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"
	"errors"
	"testing"

	"github.com/LeeDigitalWorks/s3dr/pkg/events"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage/storagetest"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *account) watcher() *Watcher {
	return NewWatcher(WatcherConfig{
		Source:       a.from,
		Publisher:    a.pub,
		Channel:      provisionChannel,
		RequiredTags: tags.Set{"dr": "true"},
	})
}

func tagging(bucket string, pairs ...tags.Pair) events.Trigger {
	return events.Trigger{
		EventName:  events.EventPutBucketTagging,
		BucketName: bucket,
		Tags:       pairs,
	}
}

func TestWatcher_TaggedBucketIsHandedOff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		versioning s3types.BucketVersioningStatus
		wantPuts   int
	}{
		{name: "versioning never configured", versioning: "", wantPuts: 1},
		{name: "versioning suspended", versioning: s3types.BucketVersioningStatusSuspended, wantPuts: 1},
		{name: "versioning enabled", versioning: s3types.BucketVersioningStatusEnabled, wantPuts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newAccount()
			a.src.AddBucket("orders", storagetest.Bucket{Versioning: tt.versioning})

			outcome, err := a.watcher().Handle(context.Background(), tagging("orders", tags.Pair{Key: "DR", Value: "True"}))
			require.NoError(t, err)
			assert.Equal(t, OutcomeHandedOff, outcome)

			assert.Equal(t, s3types.BucketVersioningStatusEnabled, a.versioning(t, "orders"))
			assert.Equal(t, tt.wantPuts, a.src.Calls("PutBucketVersioning"))
			assert.Equal(t, []published{{Channel: provisionChannel, Bucket: "orders"}}, a.pub.messages())
		})
	}
}

func TestWatcher_OutOfScopeHasNoSideEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger events.Trigger
	}{
		{
			name:    "other tags",
			trigger: tagging("orders", tags.Pair{Key: "env", Value: "prod"}),
		},
		{
			name:    "wrong value",
			trigger: tagging("orders", tags.Pair{Key: "DR", Value: "false"}),
		},
		{
			name:    "no tags in event",
			trigger: tagging("orders"),
		},
		{
			name:    "unmonitored event",
			trigger: events.Trigger{EventName: "PutBucketPolicy", BucketName: "orders", Tags: []tags.Pair{{Key: "DR", Value: "true"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newAccount()
			a.src.AddBucket("orders", storagetest.Bucket{})

			outcome, err := a.watcher().Handle(context.Background(), tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, OutcomeOutOfScope, outcome)

			assert.Zero(t, a.src.Calls("GetBucketReplication"))
			assert.Zero(t, a.src.Calls("PutBucketVersioning"))
			assert.Empty(t, a.pub.messages())
			assert.Equal(t, s3types.BucketVersioningStatus(""), a.versioning(t, "orders"))
		})
	}
}

func TestWatcher_ExtraTagsIgnored(t *testing.T) {
	t.Parallel()

	a := newAccount()
	a.src.AddBucket("orders", storagetest.Bucket{})

	outcome, err := a.watcher().Handle(context.Background(), tagging("orders",
		tags.Pair{Key: "env", Value: "prod"},
		tags.Pair{Key: "dr", Value: "TRUE"},
		tags.Pair{Key: "owner", Value: "ops"},
	))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandedOff, outcome)
}

func TestWatcher_ReplicationDeletedReadsTags(t *testing.T) {
	t.Parallel()

	deleted := func(bucket string) events.Trigger {
		return events.Trigger{EventName: events.EventDeleteBucketReplication, BucketName: bucket}
	}

	t.Run("tagged bucket", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.AddBucket("orders", storagetest.Bucket{Tags: drTag("DR", "true")})

		outcome, err := a.watcher().Handle(context.Background(), deleted("orders"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeHandedOff, outcome)
		assert.Equal(t, 1, a.src.Calls("GetBucketTagging"))
		assert.Len(t, a.pub.messages(), 1)
	})

	t.Run("bucket without tag set", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.AddBucket("orders", storagetest.Bucket{})

		outcome, err := a.watcher().Handle(context.Background(), deleted("orders"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOutOfScope, outcome)
		assert.Empty(t, a.pub.messages())
	})

	t.Run("tag read failure", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.AddBucket("orders", storagetest.Bucket{Tags: drTag("DR", "true")})
		a.src.FailOn("GetBucketTagging", storagetest.APIError("AccessDenied"))

		outcome, err := a.watcher().Handle(context.Background(), deleted("orders"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOutOfScope, outcome)
	})
}

func TestWatcher_ReplicationAlreadyEnabled(t *testing.T) {
	t.Parallel()

	a := newAccount()
	a.src.AddBucket("orders", storagetest.Bucket{
		Versioning: s3types.BucketVersioningStatusSuspended,
		Replication: &s3types.ReplicationConfiguration{
			Role: aws.String(roleARN),
			Rules: []s3types.ReplicationRule{{
				Status:      s3types.ReplicationRuleStatusEnabled,
				Destination: &s3types.Destination{Bucket: aws.String("arn:aws:s3:::orders-dr")},
			}},
		},
	})

	outcome, err := a.watcher().Handle(context.Background(), tagging("orders", tags.Pair{Key: "DR", Value: "true"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyEnabled, outcome)
	assert.Zero(t, a.src.Calls("PutBucketVersioning"))
	assert.Empty(t, a.pub.messages())
}

func TestWatcher_Idempotent(t *testing.T) {
	t.Parallel()

	a := newAccount()
	a.src.AddBucket("orders", storagetest.Bucket{})
	w := a.watcher()
	trigger := tagging("orders", tags.Pair{Key: "DR", Value: "true"})

	for range 2 {
		outcome, err := w.Handle(context.Background(), trigger)
		require.NoError(t, err)
		assert.Equal(t, OutcomeHandedOff, outcome)
	}

	assert.Equal(t, 1, a.src.Calls("PutBucketVersioning"))
	assert.Equal(t, s3types.BucketVersioningStatusEnabled, a.versioning(t, "orders"))
}

func TestWatcher_Failures(t *testing.T) {
	t.Parallel()

	trigger := tagging("orders", tags.Pair{Key: "DR", Value: "true"})

	t.Run("versioning refuses to change", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.IgnoreVersioningPuts = true
		a.src.AddBucket("orders", storagetest.Bucket{Versioning: s3types.BucketVersioningStatusSuspended})

		outcome, err := a.watcher().Handle(context.Background(), trigger)
		assert.Equal(t, OutcomeFailed, outcome)
		assert.ErrorIs(t, err, ErrVersioningNotEnabled)
		assert.Empty(t, a.pub.messages())
	})

	t.Run("replication read fails", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.AddBucket("orders", storagetest.Bucket{})
		a.src.FailOn("GetBucketReplication", storagetest.APIError("AccessDenied"))

		outcome, err := a.watcher().Handle(context.Background(), trigger)
		assert.Equal(t, OutcomeFailed, outcome)
		require.Error(t, err)
		assert.Empty(t, a.pub.messages())
	})

	t.Run("publish fails", func(t *testing.T) {
		t.Parallel()
		a := newAccount()
		a.src.AddBucket("orders", storagetest.Bucket{})
		a.pub.err = errors.New("throttled")

		outcome, err := a.watcher().Handle(context.Background(), trigger)
		assert.Equal(t, OutcomeFailed, outcome)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hand off orders")
	})
}
