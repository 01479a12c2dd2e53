// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package dr

import (
	"github.com/LeeDigitalWorks/s3dr/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HandlerInvocationsTotal tracks stage invocations by outcome
	HandlerInvocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Name:      "handler_invocations_total",
		Help:      "Total number of DR stage invocations",
	}, []string{"handler", "outcome"}) // handler: "watcher", "provisioner", "enabler", "bootstrap"
)

func init() {
	debug.Registry().MustRegister(HandlerInvocationsTotal)
}

func record(handler string, outcome Outcome) {
	HandlerInvocationsTotal.WithLabelValues(handler, string(outcome)).Inc()
}
