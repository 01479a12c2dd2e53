// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"context"

	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// State is a bucket's position in the DR pipeline.
type State string

const (
	StateOutOfScope         State = "OutOfScope"
	StateVersioningPending  State = "VersioningPending"
	StateDestinationPending State = "DestinationPending"
	StateDestinationReady   State = "DestinationReady"
	StateReplicationEnabled State = "ReplicationEnabled"
)

// Report is a read-only view of a bucket's DR configuration.
type Report struct {
	Bucket      string
	Tags        tags.Set
	InScope     bool
	Versioning  s3types.BucketVersioningStatus
	Replication storage.ReplicationStatus

	Destination           string
	DestinationExists     bool
	DestinationVersioning s3types.BucketVersioningStatus
}

// State derives the pipeline state from the report.
func (r Report) State() State {
	switch {
	case r.Replication.Enabled:
		return StateReplicationEnabled
	case !r.InScope:
		return StateOutOfScope
	case r.Versioning != s3types.BucketVersioningStatusEnabled:
		return StateVersioningPending
	case !r.DestinationExists || r.DestinationVersioning != s3types.BucketVersioningStatusEnabled:
		return StateDestinationPending
	default:
		return StateDestinationReady
	}
}

// Inspect reads everything Run would look at without changing anything.
func (b *Bootstrap) Inspect(ctx context.Context, bucket string) (Report, error) {
	r := Report{
		Bucket:      bucket,
		Destination: DestinationName(bucket),
	}

	var err error
	if r.Tags, err = b.source.Tags(ctx, bucket); err != nil {
		return r, err
	}
	r.InScope = r.Tags.Contains(b.required)

	if r.Versioning, err = b.source.VersioningStatus(ctx, bucket); err != nil {
		return r, err
	}
	if r.Replication, err = b.source.Replication(ctx, bucket); err != nil {
		return r, err
	}

	if r.DestinationExists, err = b.dest.Exists(ctx, r.Destination); err != nil {
		return r, err
	}
	if r.DestinationExists {
		if r.DestinationVersioning, err = b.dest.VersioningStatus(ctx, r.Destination); err != nil {
			return r, err
		}
	}
	return r, nil
}
