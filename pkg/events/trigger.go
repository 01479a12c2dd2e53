// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LeeDigitalWorks/s3dr/pkg/tags"
)

// Trigger is a decoded tag-change event.
type Trigger struct {
	EventName  string
	BucketName string
	Region     string

	// Tags carried by a PutBucketTagging request. Nil for other events
	// and when the tag payload could not be read.
	Tags []tags.Pair
}

// ParseDetail decodes an EventBridge "detail" document. A missing bucket
// name or undecodable document yields ErrMalformedEvent; unreadable tag
// data does not, it is reported as no tags.
func ParseDetail(detail []byte) (Trigger, error) {
	var d Detail
	if err := json.Unmarshal(detail, &d); err != nil {
		EventsMalformedTotal.Inc()
		return Trigger{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return FromDetail(d)
}

// FromDetail converts an already decoded record.
func FromDetail(d Detail) (Trigger, error) {
	bucket := strings.TrimSpace(d.RequestParameters.BucketName)
	if bucket == "" {
		EventsMalformedTotal.Inc()
		return Trigger{}, fmt.Errorf("%w: requestParameters.bucketName is empty", ErrMalformedEvent)
	}

	t := Trigger{
		EventName:  d.EventName,
		BucketName: bucket,
		Region:     d.AWSRegion,
	}
	if d.EventName == EventPutBucketTagging && d.RequestParameters.Tagging != nil {
		t.Tags, _ = decodeTags(d.RequestParameters.Tagging.TagSet.Tag)
	}

	EventsReceivedTotal.WithLabelValues(eventLabel(d.EventName)).Inc()
	return t, nil
}

// decodeTags accepts a single tag object or a list of them.
func decodeTags(raw json.RawMessage) ([]tags.Pair, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var list []rawTag
	switch raw[0] {
	case '{':
		var one rawTag
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		list = []rawTag{one}
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unexpected tag payload %q", raw[:1])
	}

	pairs := make([]tags.Pair, 0, len(list))
	for _, t := range list {
		pairs = append(pairs, tags.Pair{Key: t.Key, Value: scalar(t.Value)})
	}
	return pairs, nil
}

// scalar renders a tag value. CloudTrail keeps values as strings but
// hand-built test events often carry bare booleans or numbers.
func scalar(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}

func eventLabel(name string) string {
	if Monitored(name) {
		return name
	}
	return "other"
}
