// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 error codes that mean "not configured yet" rather than failure.
const (
	codeNoSuchTagSet            = "NoSuchTagSet"
	codeNoSuchBucket            = "NoSuchBucket"
	codeNotFound                = "NotFound"
	codeReplicationNotFound     = "ReplicationConfigurationNotFoundError"
	codeBucketAlreadyOwnedByYou = "BucketAlreadyOwnedByYou"
)

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsBucketNotFound reports whether err says the bucket does not exist.
func IsBucketNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return true
	}
	switch errorCode(err) {
	case codeNotFound, codeNoSuchBucket:
		return true
	}
	return false
}

// IsNoTagSet reports whether err says the bucket carries no tags.
func IsNoTagSet(err error) bool {
	return errorCode(err) == codeNoSuchTagSet
}

// IsReplicationNotFound reports whether err says no replication
// configuration exists on the bucket.
func IsReplicationNotFound(err error) bool {
	return errorCode(err) == codeReplicationNotFound
}

// IsAlreadyOwned reports whether a CreateBucket failed because the caller
// already owns the bucket.
func IsAlreadyOwned(err error) bool {
	var owned *s3types.BucketAlreadyOwnedByYou
	return errors.As(err, &owned) || errorCode(err) == codeBucketAlreadyOwnedByYou
}
