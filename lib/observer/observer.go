// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package observer schedules and unschedules watches, running each one as
// a supervised service.
package observer

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/thejerf/suture/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/ignore"
	"github.com/snapwatch/snapwatch/lib/logger"
	"github.com/snapwatch/snapwatch/lib/snapshot"
	"github.com/snapwatch/snapwatch/lib/svcutil"
	"github.com/snapwatch/snapwatch/lib/sync"
	"github.com/snapwatch/snapwatch/lib/watch"
)

var (
	ErrNoSuchWatch      = errors.New("no such watch")
	ErrConflictingWatch = errors.New("path is already watched with other ignore patterns")
)

// A WatchID identifies a scheduled watch. IDs are never reused by an
// Observer.
type WatchID string

// A SourceFunc returns the notification source for a new watch.
type SourceFunc func(root string, recursive bool, ignores fs.Matcher) watch.Source

type Options struct {
	// LockTimeout is passed on to every emitter.
	LockTimeout time.Duration
	// NotifyDelay and MaxNotifyDirs configure the default NotifySource.
	NotifyDelay   time.Duration
	MaxNotifyDirs int
	// SourceFunc replaces the default NotifySource when set.
	SourceFunc SourceFunc
}

type WatchInfo struct {
	ID        WatchID     `json:"id"`
	Path      string      `json:"path"`
	Recursive bool        `json:"recursive"`
	State     watch.State `json:"state"`
	Ignores   []string    `json:"ignores,omitempty"`
}

type scheduledWatch struct {
	id      WatchID
	key     watchKey
	ignores *ignore.Matcher
	service *watch.Service
	token   suture.ServiceToken
	removed bool // from the supervisor, under Observer.mut
}

type watchKey struct {
	path      string
	recursive bool
}

// An Observer owns the watches scheduled on it. It is a suture service
// itself; watches start running once it is served.
type Observer struct {
	*suture.Supervisor
	filesystem fs.Filesystem
	sink       watch.Sink
	opts       Options

	watches *xsync.MapOf[WatchID, *scheduledWatch]
	keys    map[watchKey]WatchID
	mut     sync.Mutex // serializes Schedule and Unschedule, protects keys
	nextID  atomic.Int64
}

func New(filesystem fs.Filesystem, sink watch.Sink, opts Options) *Observer {
	o := &Observer{
		Supervisor: suture.New("observer", svcutil.Spec(l, logger.LevelDebug)),
		filesystem: filesystem,
		sink:       sink,
		opts:       opts,
		watches:    xsync.NewMapOf[WatchID, *scheduledWatch](),
		keys:       make(map[watchKey]WatchID),
		mut:        sync.NewMutex(),
	}
	if o.opts.SourceFunc == nil {
		o.opts.SourceFunc = o.notifySource
	}
	return o
}

func (o *Observer) String() string {
	return fmt.Sprintf("observer@%p", o)
}

// Schedule starts watching path. The path is made absolute with symlinks
// resolved and normalized to NFC, so scheduling the same directory and
// recursion again under another name returns the existing ID.
func (o *Observer) Schedule(path string, recursive bool, ignores []string) (WatchID, error) {
	path, err := o.resolve(path)
	if err != nil {
		return "", err
	}
	matcher, err := ignore.New(ignores)
	if err != nil {
		return "", fmt.Errorf("watching %s: %w", path, err)
	}

	o.mut.Lock()
	defer o.mut.Unlock()

	key := watchKey{path: path, recursive: recursive}
	if id, ok := o.keys[key]; ok {
		existing, _ := o.watches.Load(id)
		if existing.ignores.Hash() != matcher.Hash() {
			return "", fmt.Errorf("watching %s: %w", path, ErrConflictingWatch)
		}
		return id, nil
	}

	id := WatchID(strconv.FormatInt(o.nextID.Add(1), 10))
	emitter := watch.NewEmitter(path, recursive, snapshot.NewScanner(o.filesystem, matcher), o.sink, watch.Options{
		LockTimeout: o.opts.LockTimeout,
	})
	w := &scheduledWatch{
		id:      id,
		key:     key,
		ignores: matcher,
		service: watch.NewService(emitter, o.opts.SourceFunc(path, recursive, matcher), o.sink),
	}
	w.token = o.Add(w.service)
	o.watches.Store(id, w)
	o.keys[key] = id

	l.Infof("Watching %s (recursive=%v) as %s", path, recursive, id)
	return id, nil
}

// Unschedule stops the given watch and waits for its service to exit. A
// watch whose emitter fails to stop stays scheduled and may be
// unscheduled again.
func (o *Observer) Unschedule(id WatchID) error {
	o.mut.Lock()
	defer o.mut.Unlock()

	w, ok := o.watches.Load(id)
	if !ok {
		return ErrNoSuchWatch
	}

	if !w.removed {
		err := o.RemoveAndWait(w.token, svcutil.ServiceTimeout)
		if errors.Is(err, suture.ErrSupervisorNotStarted) || errors.Is(err, suture.ErrSupervisorNotRunning) {
			err = nil
		}
		if err != nil {
			l.Infof("Stopping watch %s: %v", id, err)
		}
		w.removed = true
	}
	// The service may not have run at all, or may still be unwinding.
	if err := w.service.Emitter().Stop(); err != nil {
		return fmt.Errorf("unwatching %s: %w", w.key.path, err)
	}

	o.watches.Delete(id)
	delete(o.keys, w.key)
	l.Infof("Stopped watching %s", w.key.path)
	return nil
}

// Watches returns the scheduled watches sorted by path.
func (o *Observer) Watches() []WatchInfo {
	var res []WatchInfo
	o.watches.Range(func(id WatchID, w *scheduledWatch) bool {
		res = append(res, WatchInfo{
			ID:        id,
			Path:      w.key.path,
			Recursive: w.key.recursive,
			State:     w.service.Emitter().State(),
			Ignores:   w.ignores.Lines(),
		})
		return true
	})
	slices.SortFunc(res, func(a, b WatchInfo) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		// Non recursive first.
		switch {
		case a.Recursive == b.Recursive:
			return 0
		case b.Recursive:
			return -1
		default:
			return 1
		}
	})
	return res
}

// Emitter returns the emitter of a scheduled watch.
func (o *Observer) Emitter(id WatchID) (*watch.Emitter, error) {
	w, ok := o.watches.Load(id)
	if !ok {
		return nil, ErrNoSuchWatch
	}
	return w.service.Emitter(), nil
}

func (o *Observer) resolve(path string) (string, error) {
	abs, err := filepath.Abs(norm.NFC.String(path))
	if err != nil {
		return "", err
	}
	resolved, err := o.filesystem.Realpath(abs)
	if err != nil {
		return "", fmt.Errorf("watching %s: %w", path, err)
	}
	// Link targets are not necessarily normalized.
	return norm.NFC.String(resolved), nil
}

func (o *Observer) notifySource(root string, recursive bool, ignores fs.Matcher) watch.Source {
	return &watch.NotifySource{
		Filesystem: o.filesystem,
		Root:       root,
		Recursive:  recursive,
		Ignores:    ignores,
		Delay:      o.opts.NotifyDelay,
		MaxDirs:    o.opts.MaxNotifyDirs,
	}
}
