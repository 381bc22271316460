// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricOperationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapwatch",
		Subsystem: "fs",
		Name:      "operation_seconds",
		Help:      "Latency of filesystem operations",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"root", "operation"})
	metricOperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapwatch",
		Subsystem: "fs",
		Name:      "operation_errors_total",
		Help:      "Filesystem operations that failed, not counting missing files",
	}, []string{"root", "operation"})
)

// metricsFS times every call into the wrapped filesystem.
type metricsFS struct {
	next Filesystem
	root string
}

var _ Filesystem = (*metricsFS)(nil)

// NewMetricsFilesystem wraps next, recording latency and failures per
// operation.
func NewMetricsFilesystem(next Filesystem) Filesystem {
	return &metricsFS{next: next, root: next.URI()}
}

func (m *metricsFS) observe(op string, t0 time.Time, err error) {
	metricOperationSeconds.WithLabelValues(m.root, op).Observe(time.Since(t0).Seconds())
	if err != nil && !IsNotExist(err) {
		metricOperationErrors.WithLabelValues(m.root, op).Inc()
	}
}

func (m *metricsFS) Lstat(name string) (FileInfo, error) {
	t0 := time.Now()
	fi, err := m.next.Lstat(name)
	m.observe("lstat", t0, err)
	return fi, err
}

func (m *metricsFS) DirNames(name string) ([]string, error) {
	t0 := time.Now()
	names, err := m.next.DirNames(name)
	m.observe("dirnames", t0, err)
	return names, err
}

func (m *metricsFS) Watch(name string, ignore Matcher, ctx context.Context, recursive bool) (<-chan Event, <-chan error, error) {
	t0 := time.Now()
	evs, errs, err := m.next.Watch(name, ignore, ctx, recursive)
	m.observe("watch", t0, err)
	return evs, errs, err
}

func (m *metricsFS) Realpath(name string) (string, error) {
	t0 := time.Now()
	resolved, err := m.next.Realpath(name)
	m.observe("realpath", t0, err)
	return resolved, err
}

func (m *metricsFS) Type() FilesystemType {
	return m.next.Type()
}

func (m *metricsFS) URI() string {
	return m.root
}

// Unwrap returns the wrapped filesystem.
func (m *metricsFS) Unwrap() Filesystem {
	return m.next
}
