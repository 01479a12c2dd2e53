// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package tags

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := Normalize([]Pair{
		{Key: "DR", Value: "TRUE"},
		{Key: "Env", Value: "Prod"},
	})
	want := Set{"dr": "true", "env": "prod"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromS3(t *testing.T) {
	t.Parallel()

	got := FromS3([]s3types.Tag{
		{Key: aws.String("DR"), Value: aws.String("true")},
		{Key: aws.String("Owner"), Value: nil},
	})
	want := Set{"dr": "true", "owner": ""}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromS3() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Set
		wantErr bool
	}{
		{name: "string value", input: `{"DR": "True"}`, want: Set{"dr": "true"}},
		{name: "bool value", input: `{"DR": true}`, want: Set{"dr": "true"}},
		{name: "number value", input: `{"tier": 1}`, want: Set{"tier": "1"}},
		{name: "empty", input: "", want: Set{}},
		{name: "malformed", input: `{"DR":`, wantErr: true},
		{name: "not an object", input: `["DR"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_Contains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actual   Set
		required Set
		want     bool
	}{
		{
			name:     "case-insensitive match",
			actual:   FromMap(map[string]string{"DR": "true"}),
			required: FromMap(map[string]string{"dr": "TRUE"}),
			want:     true,
		},
		{
			name:     "different tag",
			actual:   FromMap(map[string]string{"env": "prod"}),
			required: FromMap(map[string]string{"dr": "true"}),
			want:     false,
		},
		{
			name:     "extra tags ignored",
			actual:   FromMap(map[string]string{"DR": "true", "env": "prod", "team": "core"}),
			required: FromMap(map[string]string{"dr": "true"}),
			want:     true,
		},
		{
			name:     "value mismatch",
			actual:   FromMap(map[string]string{"DR": "false"}),
			required: FromMap(map[string]string{"dr": "true"}),
			want:     false,
		},
		{
			name:     "partial subset fails",
			actual:   FromMap(map[string]string{"DR": "true"}),
			required: FromMap(map[string]string{"dr": "true", "env": "prod"}),
			want:     false,
		},
		{
			name:     "no tags",
			actual:   nil,
			required: FromMap(map[string]string{"dr": "true"}),
			want:     false,
		},
		{
			name:     "empty requirement",
			actual:   nil,
			required: Set{},
			want:     true,
		},
		{
			name:     "unicode folding",
			actual:   FromMap(map[string]string{"Ärzte": "JA"}),
			required: FromMap(map[string]string{"ÄRZTE": "ja"}),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.actual.Contains(tt.required))
		})
	}
}

// Contains must agree with a brute-force check over every pair.
func TestSet_Contains_SubsetProperty(t *testing.T) {
	t.Parallel()

	universe := []Pair{
		{"DR", "true"}, {"dr", "FALSE"}, {"Env", "prod"}, {"env", "Dev"}, {"team", "core"},
	}

	// Enumerate every combination of pairs for both sides.
	n := len(universe)
	for r := 0; r < 1<<n; r++ {
		for a := 0; a < 1<<n; a++ {
			required := Normalize(pick(universe, r))
			actual := Normalize(pick(universe, a))

			want := true
			for k, v := range required {
				if actual[k] != v {
					want = false
					break
				}
				if _, ok := actual[k]; !ok {
					want = false
					break
				}
			}
			assert.Equal(t, want, actual.Contains(required), "required=%s actual=%s", required, actual)
		}
	}
}

func pick(pairs []Pair, mask int) []Pair {
	var out []Pair
	for i, p := range pairs {
		if mask&(1<<i) != 0 {
			out = append(out, p)
		}
	}
	return out
}

func TestSet_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{dr=true, env=prod}", Set{"env": "prod", "dr": "true"}.String())
	assert.Equal(t, "{}", Set{}.String())
}
