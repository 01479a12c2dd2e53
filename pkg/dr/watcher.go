// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/events"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"
)

// WatcherConfig configures the tag-change watcher.
type WatcherConfig struct {
	// Source is bound to the region of the watched buckets.
	Source *storage.Buckets

	Publisher notify.Publisher

	// Channel receives buckets that entered DR scope.
	Channel string

	// RequiredTags must all be present on a bucket for it to be in scope.
	RequiredTags tags.Set
}

// Watcher decides whether a tag-change event puts a bucket in DR scope
// and starts the pipeline for it.
type Watcher struct {
	source    *storage.Buckets
	publisher notify.Publisher
	channel   string
	required  tags.Set
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		source:    cfg.Source,
		publisher: cfg.Publisher,
		channel:   cfg.Channel,
		required:  cfg.RequiredTags,
	}
}

// Handle processes one trigger. Missing or unreadable tags count as no
// tags and leave the bucket out of scope.
func (w *Watcher) Handle(ctx context.Context, t events.Trigger) (Outcome, error) {
	ctx = logger.With(ctx, "bucket", t.BucketName)
	outcome, err := w.handle(ctx, t)
	record("watcher", outcome)
	return outcome, err
}

func (w *Watcher) handle(ctx context.Context, t events.Trigger) (Outcome, error) {
	log := logger.Ctx(ctx)
	log.Info().Str("event", t.EventName).Msg("processing event")

	actual := w.bucketTags(ctx, t)
	if !actual.Contains(w.required) {
		log.Info().
			Str("tags", actual.String()).
			Str("required", w.required.String()).
			Msg("bucket is not in DR scope, add the required tags to enable DR")
		return OutcomeOutOfScope, nil
	}

	status, err := w.source.Replication(ctx, t.BucketName)
	if err != nil {
		return OutcomeFailed, err
	}
	if status.Enabled {
		log.Info().Msg("cross region replication already enabled")
		return OutcomeAlreadyEnabled, nil
	}

	if err := requireVersioning(ctx, w.source, t.BucketName); err != nil {
		return OutcomeFailed, err
	}

	if err := w.publisher.Publish(ctx, w.channel, notify.Message{BucketName: t.BucketName}); err != nil {
		return OutcomeFailed, fmt.Errorf("hand off %s: %w", t.BucketName, err)
	}
	log.Info().
		Str("destination", DestinationName(t.BucketName)).
		Msg("requested destination bucket for replication")
	return OutcomeHandedOff, nil
}

func (w *Watcher) bucketTags(ctx context.Context, t events.Trigger) tags.Set {
	switch t.EventName {
	case events.EventPutBucketTagging:
		return tags.Normalize(t.Tags)
	case events.EventDeleteBucketReplication:
		set, err := w.source.Tags(ctx, t.BucketName)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("could not read bucket tags, treating as untagged")
			return tags.Set{}
		}
		return set
	default:
		logger.Ctx(ctx).Info().Str("event", t.EventName).Msg("event is not monitored, treating as untagged")
		return tags.Set{}
	}
}
