// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricReconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "watch",
		Name:      "reconciliations_total",
		Help:      "Total number of notification batches reconciled",
	}, []string{"root"})
	metricStructuralRediffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "watch",
		Name:      "structural_rediffs_total",
		Help:      "Total number of scoped diffs repaired and redone due to directory changes",
	}, []string{"root"})
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "watch",
		Name:      "events_total",
		Help:      "Total number of change events emitted, per event type",
	}, []string{"root", "type"})
	metricScanErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "watch",
		Name:      "scan_errors_total",
		Help:      "Total number of scans that did not complete",
	}, []string{"root"})
	metricReconcileSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "watch",
		Name:      "reconcile_seconds_total",
		Help:      "Total time spent reconciling notification batches",
	}, []string{"root"})
)

func deleteMetrics(root string) {
	labels := prometheus.Labels{"root": root}
	metricReconciliations.DeletePartialMatch(labels)
	metricStructuralRediffs.DeletePartialMatch(labels)
	metricEvents.DeletePartialMatch(labels)
	metricScanErrors.DeletePartialMatch(labels)
	metricReconcileSeconds.DeletePartialMatch(labels)
}
