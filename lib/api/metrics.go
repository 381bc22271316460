// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of REST requests handled",
	}, []string{"method", "code"})
	metricRequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapwatch",
		Subsystem: "api",
		Name:      "request_seconds",
		Help:      "Time spent handling REST requests",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"method"})
)
