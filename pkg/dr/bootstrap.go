// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"

	"golang.org/x/time/rate"
)

// BootstrapConfig configures the synchronous bootstrap.
type BootstrapConfig struct {
	Source        *storage.Buckets
	Destination   *storage.Buckets
	RequiredTags  tags.Set
	Rule          RuleTemplate
	LoggingBucket string

	// Rate limits how many buckets per second RunAll starts; zero means
	// no limit.
	Rate  float64
	Burst int
}

// Bootstrap runs every pipeline stage for a bucket in one call, without
// channel hand-offs.
type Bootstrap struct {
	source        *storage.Buckets
	dest          *storage.Buckets
	required      tags.Set
	rule          RuleTemplate
	loggingBucket string
	limiter       *rate.Limiter
}

func NewBootstrap(cfg BootstrapConfig) *Bootstrap {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &Bootstrap{
		source:        cfg.Source,
		dest:          cfg.Destination,
		required:      cfg.RequiredTags,
		rule:          cfg.Rule,
		loggingBucket: cfg.LoggingBucket,
		limiter:       limiter,
	}
}

// Result is the outcome for one bucket of RunAll.
type Result struct {
	Bucket  string
	Outcome Outcome
	Err     error
}

// Run bootstraps DR for one bucket.
func (b *Bootstrap) Run(ctx context.Context, bucket string) (Outcome, error) {
	ctx = logger.With(ctx, "bucket", bucket)
	outcome, err := b.run(ctx, bucket)
	record("bootstrap", outcome)
	return outcome, err
}

func (b *Bootstrap) run(ctx context.Context, bucket string) (Outcome, error) {
	log := logger.Ctx(ctx)

	actual, err := b.source.Tags(ctx, bucket)
	if err != nil {
		return OutcomeFailed, err
	}
	if !actual.Contains(b.required) {
		log.Info().
			Str("tags", actual.String()).
			Str("required", b.required.String()).
			Msg("bucket is not in DR scope")
		return OutcomeOutOfScope, nil
	}
	log.Info().Msg("cross region replication will be enabled")

	if err := requireVersioning(ctx, b.source, bucket); err != nil {
		return OutcomeFailed, err
	}
	if err := ensureDestination(ctx, b.dest, DestinationName(bucket), b.loggingBucket); err != nil {
		return OutcomeFailed, err
	}
	return enableReplication(ctx, b.source, b.dest, bucket, b.rule)
}

// RunAll bootstraps buckets in order, waiting on the rate limiter between
// them. A failed bucket does not stop the batch; the returned error joins
// every failure. Cancelling ctx stops before the next bucket.
func (b *Bootstrap) RunAll(ctx context.Context, buckets []string) ([]Result, error) {
	results := make([]Result, 0, len(buckets))
	var errs []error

	for _, bucket := range buckets {
		if err := b.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		outcome, err := b.Run(ctx, bucket)
		results = append(results, Result{Bucket: bucket, Outcome: outcome, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bucket, err))
		}
	}

	return results, errors.Join(errs...)
}
