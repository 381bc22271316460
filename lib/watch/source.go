// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/snapshot"
)

// A Source delivers notification batches for one watch until ctx is
// cancelled. An error on the error channel ends the source.
type Source interface {
	Batches(ctx context.Context) (<-chan []Notification, <-chan error, error)
}

const (
	DefaultNotifyDelay = 500 * time.Millisecond
	DefaultMaxDirs     = 128
)

// NotifySource turns the per path events of a filesystem watch into
// notification batches. Events are collected for Delay after the first one
// and reported as the set of directories they happened in. When the
// backend overflows, or more than MaxDirs directories are affected, the
// batch is a single notification for the root with MustScanSubDirs and
// UserDropped set.
type NotifySource struct {
	Filesystem fs.Filesystem
	Root       string
	Recursive  bool
	Ignores    fs.Matcher
	Delay      time.Duration
	MaxDirs    int
}

func (s *NotifySource) String() string {
	return fmt.Sprintf("notify/%s", s.Root)
}

func (s *NotifySource) Batches(ctx context.Context) (<-chan []Notification, <-chan error, error) {
	root := filepath.Clean(s.Root)
	evChan, errChan, err := s.Filesystem.Watch(root, s.Ignores, ctx, s.Recursive)
	if err != nil {
		return nil, nil, err
	}

	a := &aggregator{
		root:    root,
		delay:   s.Delay,
		maxDirs: s.MaxDirs,
	}
	if a.delay <= 0 {
		a.delay = DefaultNotifyDelay
	}
	if a.maxDirs <= 0 {
		a.maxDirs = DefaultMaxDirs
	}

	out := make(chan []Notification)
	go a.mainLoop(ctx, evChan, out)
	return out, errChan, nil
}

// aggregator collects events into batches of affected directories.
type aggregator struct {
	root     string
	delay    time.Duration
	maxDirs  int
	dirs     map[string]struct{}
	overflow bool
}

func (a *aggregator) String() string {
	return fmt.Sprintf("aggregator/%s", a.root)
}

func (a *aggregator) mainLoop(ctx context.Context, in <-chan fs.Event, out chan<- []Notification) {
	a.reset()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				l.Debugln(a, "event channel closed")
				return
			}
			a.add(ev)
			if !pending {
				timer.Reset(a.delay)
				pending = true
			}
		case <-timer.C:
			pending = false
			batch := a.batch()
			a.reset()
			l.Debugln(a, "sending", len(batch), "notifications")
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			l.Debugln(a, "Stopped")
			return
		}
	}
}

func (a *aggregator) reset() {
	a.dirs = make(map[string]struct{})
	a.overflow = false
}

func (a *aggregator) add(ev fs.Event) {
	if ev.Type.IsOverflow() {
		l.Debugln(a, "backend overflow")
		a.overflow = true
		return
	}
	if a.overflow {
		return
	}

	name := filepath.Clean(ev.Name)
	dir := a.root
	if snapshot.IsWithin(name, a.root) {
		dir = filepath.Dir(name)
	}
	a.dirs[dir] = struct{}{}
	if len(a.dirs) > a.maxDirs {
		l.Debugln(a, "too many directories changed, scanning everything")
		a.overflow = true
		a.dirs = make(map[string]struct{})
	}
}

func (a *aggregator) batch() []Notification {
	if a.overflow {
		return []Notification{{Path: a.root, Flags: MustScanSubDirs | UserDropped}}
	}
	batch := make([]Notification, 0, len(a.dirs))
	for dir := range a.dirs {
		batch = append(batch, Notification{Path: dir})
	}
	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Path < batch[j].Path
	})
	return batch
}
