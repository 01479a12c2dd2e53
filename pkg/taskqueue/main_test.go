// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue_test

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
