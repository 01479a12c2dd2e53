// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"strings"
	"testing"

	"github.com/LeeDigitalWorks/s3dr/pkg/storage"

	"github.com/stretchr/testify/assert"
)

func TestDestinationName(t *testing.T) {
	t.Parallel()

	for _, source := range []string{"orders", "a", "logs-2025", "orders-dr", "x.y.z"} {
		got := DestinationName(source)
		assert.Equal(t, source+"-dr", got)
		assert.True(t, strings.HasPrefix(got, source))
		assert.Equal(t, len(source)+len(DestinationSuffix), len(got))
	}
}

func TestRuleTemplate_ForBucket(t *testing.T) {
	t.Parallel()

	rule := RuleTemplate{Role: roleARN, StorageClass: "STANDARD_IA"}.forBucket("orders")
	assert.Equal(t, storage.ReplicationRule{
		ID:                storage.DefaultRuleID,
		Role:              roleARN,
		DestinationBucket: "orders-dr",
		StorageClass:      "STANDARD_IA",
	}, rule)
}
