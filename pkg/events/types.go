// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package events decodes the CloudTrail API-call events that trigger a DR
// scope check. EventBridge delivers them with the CloudTrail record in the
// event "detail".
package events

import (
	"encoding/json"
	"errors"
)

// Monitored CloudTrail event names.
// See: https://docs.aws.amazon.com/AmazonS3/latest/userguide/cloudtrail-logging-s3-info.html
const (
	EventPutBucketTagging        = "PutBucketTagging"
	EventDeleteBucketReplication = "DeleteBucketReplication"
)

// ErrMalformedEvent is returned when an event lacks the fields needed to
// identify the bucket.
var ErrMalformedEvent = errors.New("malformed trigger event")

// Detail is the subset of a CloudTrail record the watcher reads.
type Detail struct {
	EventSource       string            `json:"eventSource"`
	EventName         string            `json:"eventName"`
	AWSRegion         string            `json:"awsRegion"`
	RequestParameters RequestParameters `json:"requestParameters"`
}

// RequestParameters of a bucket-level S3 API call.
type RequestParameters struct {
	BucketName string   `json:"bucketName"`
	Tagging    *Tagging `json:"Tagging,omitempty"`
}

// Tagging mirrors the PutBucketTagging request body as CloudTrail records
// it. Tag is a single object for one tag and a list for several, so it is
// decoded lazily.
type Tagging struct {
	TagSet struct {
		Tag json.RawMessage `json:"Tag"`
	} `json:"TagSet"`
}

type rawTag struct {
	Key   string          `json:"Key"`
	Value json.RawMessage `json:"Value"`
}

// Monitored reports whether name is one of the events that can change a
// bucket's DR scope.
func Monitored(name string) bool {
	return name == EventPutBucketTagging || name == EventDeleteBucketReplication
}
