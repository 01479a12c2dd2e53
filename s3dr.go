// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/LeeDigitalWorks/s3dr/cmd"

	"github.com/getsentry/sentry-go"
)

func main() {
	// SENTRY_DSN and SENTRY_ENVIRONMENT come from the environment; without a
	// DSN the client drops every event.
	err := sentry.Init(sentry.ClientOptions{
		Release:          "s3dr@" + cmd.Version,
		SampleRate:       1.0,
		EnableTracing:    false,
		TracesSampleRate: 0.1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentry.Init: %v", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		build := sentry.Context{}
		for k, v := range cmd.VersionInfo() {
			build[k] = v
		}
		scope.SetContext("build", build)
	})

	err = cmd.Execute()

	// Flush buffered events before the program terminates.
	sentry.Flush(2 * time.Second)
	if err != nil {
		os.Exit(1)
	}
}
