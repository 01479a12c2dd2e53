// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package tags holds the canonical bucket tag-set representation used for
// DR scope decisions. Keys and values are case-folded on the way in, so
// every comparison downstream is case-insensitive.
package tags

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/text/cases"
)

// Set is a normalized tag mapping. The zero value is an empty set.
type Set map[string]string

// Pair is a raw key/value tag before normalization.
type Pair struct {
	Key   string
	Value string
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Normalize is the single conversion point from raw tags into a Set.
// Later duplicates of the same folded key win.
func Normalize(pairs []Pair) Set {
	set := make(Set, len(pairs))
	for _, p := range pairs {
		set[fold(p.Key)] = fold(p.Value)
	}
	return set
}

// FromMap normalizes a plain key/value mapping.
func FromMap(m map[string]string) Set {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return Normalize(pairs)
}

// FromS3 normalizes an S3 tag set.
func FromS3(tagSet []s3types.Tag) Set {
	pairs := make([]Pair, 0, len(tagSet))
	for _, t := range tagSet {
		var p Pair
		if t.Key != nil {
			p.Key = *t.Key
		}
		if t.Value != nil {
			p.Value = *t.Value
		}
		pairs = append(pairs, p)
	}
	return Normalize(pairs)
}

// ParseJSON decodes a JSON object of required tags, e.g. {"DR": "true"}.
// Non-string values are rendered with their JSON text.
func ParseJSON(data string) (Set, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Set{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("parse tag mapping: %w", err)
	}

	m := make(map[string]string, len(raw))
	for k, v := range raw {
		m[k] = jsonScalar(v)
	}
	return FromMap(m), nil
}

func jsonScalar(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}

// Contains reports whether every (key, value) pair of required is present
// in s. Extra tags in s are ignored; an empty required set is always
// contained.
func (s Set) Contains(required Set) bool {
	for k, want := range required {
		got, ok := s[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// String renders the set with sorted keys, for logging.
func (s Set) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s[k])
	}
	b.WriteByte('}')
	return b.String()
}
