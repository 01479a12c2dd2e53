// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
)

// EnablerConfig configures the replication enabler.
type EnablerConfig struct {
	Source      *storage.Buckets
	Destination *storage.Buckets
	Rule        RuleTemplate
}

// Enabler puts the replication rule on a source bucket.
type Enabler struct {
	source *storage.Buckets
	dest   *storage.Buckets
	rule   RuleTemplate
}

func NewEnabler(cfg EnablerConfig) *Enabler {
	return &Enabler{
		source: cfg.Source,
		dest:   cfg.Destination,
		rule:   cfg.Rule,
	}
}

// Handle enables replication of msg.BucketName to its "-dr" bucket. An
// existing Enabled rule is left untouched; concurrent writers race and the
// last put wins.
func (e *Enabler) Handle(ctx context.Context, msg notify.Message) (Outcome, error) {
	ctx = logger.With(ctx, "bucket", msg.BucketName)
	outcome, err := enableReplication(ctx, e.source, e.dest, msg.BucketName, e.rule)
	record("enabler", outcome)
	return outcome, err
}
