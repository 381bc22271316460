// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package watch turns coarse change notifications into exact change events
// by keeping a snapshot of the watched tree and diffing it against fresh
// scans of the notified paths.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/snapshot"
	"github.com/snapwatch/snapwatch/lib/sync"
)

const DefaultLockTimeout = 30 * time.Second

// A Sink receives the events of an emitter, one at a time. It must not
// block for long as it is called with the watch lock held.
type Sink interface {
	Log(t events.EventType, data interface{})
}

type Options struct {
	// LockTimeout bounds the wait for the watch lock. Zero means
	// DefaultLockTimeout.
	LockTimeout time.Duration
}

// An Emitter reconciles notification batches for one watched root against
// its running snapshot and passes the resulting events to a sink.
type Emitter struct {
	root        string
	recursive   bool
	scanner     *snapshot.Scanner
	sink        Sink
	lockTimeout time.Duration

	state stateValue

	mut     sync.TimeoutMutex // protects running and state transitions
	running *snapshot.Snapshot
}

func NewEmitter(root string, recursive bool, scanner *snapshot.Scanner, sink Sink, opts Options) *Emitter {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	return &Emitter{
		root:        filepath.Clean(root),
		recursive:   recursive,
		scanner:     scanner,
		sink:        sink,
		lockTimeout: opts.LockTimeout,
		mut:         sync.NewTimeoutMutex(),
	}
}

func (e *Emitter) String() string {
	return fmt.Sprintf("emitter/%s", e.root)
}

func (e *Emitter) Root() string {
	return e.root
}

func (e *Emitter) Recursive() bool {
	return e.recursive
}

func (e *Emitter) State() State {
	return e.state.load()
}

// Snapshot returns a copy of the running snapshot, or nil when the emitter
// is not started or stopped. The error is a *LockTimeoutError when the
// watch lock could not be acquired.
func (e *Emitter) Snapshot() (*snapshot.Snapshot, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mut.Unlock()
	if e.running == nil {
		return nil, nil
	}
	return e.running.Clone(), nil
}

// Start takes the initial snapshot of the watched tree. Errors from
// scanning are returned but leave the emitter watching whatever could be
// scanned. Starting an emitter that is already watching does nothing.
func (e *Emitter) Start() error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mut.Unlock()

	switch e.State() {
	case StateStopped:
		return ErrStopped
	case StateIdle:
	default:
		return nil
	}

	snap, err := e.scanner.Build(e.root, e.recursive)
	e.running = snap
	e.setState(StateWatching)
	l.Debugf("%v: started with %d entries", e, snap.Len())
	if err != nil {
		metricScanErrors.WithLabelValues(e.root).Inc()
		l.Infof("Watching %s: initial scan incomplete: %v", e.root, err)
	}
	return err
}

// Reconcile processes a batch of notifications, in order, updating the
// running snapshot and delivering the resulting events to the sink. The
// returned error is either fatal (see IsFatal) or joins the scan errors
// encountered, in which case all events were still delivered.
func (e *Emitter) Reconcile(batch []Notification) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mut.Unlock()

	switch e.State() {
	case StateStopped:
		return ErrStopped
	case StateIdle:
		return ErrNotStarted
	}

	t0 := time.Now()
	e.setState(StateReconciling)

	var evs []Event
	var errs []error
	for _, n := range batch {
		d, err := e.reconcileOne(n)
		if err != nil {
			metricScanErrors.WithLabelValues(e.root).Inc()
			errs = append(errs, err)
		}
		evs = AppendEvents(evs, e.root, d)
	}

	for _, ev := range evs {
		metricEvents.WithLabelValues(e.root, ev.Type.String()).Inc()
		e.sink.Log(ev.Type, ev.Data)
	}

	e.setState(StateWatching)
	metricReconciliations.WithLabelValues(e.root).Inc()
	metricReconcileSeconds.WithLabelValues(e.root).Add(time.Since(t0).Seconds())
	l.Debugf("%v: reconciled %d notifications into %d events in %v", e, len(batch), len(evs), time.Since(t0))

	return errors.Join(errs...)
}

// Stop waits for any reconciliation in progress, then releases the running
// snapshot. A stopped emitter cannot be restarted. Stopping twice is fine.
func (e *Emitter) Stop() error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mut.Unlock()

	if e.State() == StateStopped {
		return nil
	}
	e.running = nil
	e.setState(StateStopped)
	deleteMetrics(e.root)
	return nil
}

func (e *Emitter) lock() error {
	if !e.mut.TryLockTimeout(e.lockTimeout) {
		l.Warnf("Watching %s: lock not acquired within %v", e.root, e.lockTimeout)
		return &LockTimeoutError{Root: e.root, Timeout: e.lockTimeout}
	}
	return nil
}

// setState must be called with the lock held.
func (e *Emitter) setState(st State) {
	prev := e.state.store(st)
	if prev == st || st == StateReconciling || prev == StateReconciling {
		return
	}
	l.Debugf("%v: %v -> %v", e, prev, st)
	e.sink.Log(events.StateChanged, events.StateChangeData{
		Watch: e.root,
		From:  prev.String(),
		To:    st.String(),
	})
}

// reconcileOne computes the changes signalled by one notification and
// applies them to the running snapshot.
func (e *Emitter) reconcileOne(n Notification) (snapshot.DiffResult, error) {
	path := filepath.Clean(n.Path)
	if path != e.root && (!e.recursive || !snapshot.IsWithin(path, e.root)) {
		l.Debugln(e, "skipping", n)
		return snapshot.DiffResult{}, nil
	}

	recursiveUpdate := e.recursive && n.Flags&MustScanSubDirs != 0
	newPartial, err := e.scanner.Build(path, recursiveUpdate)

	if path != e.root && vanished(err, path) {
		// Scanning the closest existing ancestor shows where the path
		// went, if it was renamed.
		scope := e.existingAncestor(path)
		l.Debugln(e, path, "vanished, rescoping to", scope)
		path, recursiveUpdate = scope, false
		newPartial, err = e.scanner.Build(path, false)
	}

	if recursiveUpdate && path == e.root {
		d := snapshot.Diff(e.running, newPartial)
		e.running = newPartial
		l.Debugln(e, "full rescan:", d)
		return d, err
	}

	previousPartial := e.running.Subset(path, recursiveUpdate)
	d := snapshot.Diff(previousPartial, newPartial)
	if d.HasStructuralChanges() && e.recursive {
		l.Debugln(e, "structural changes at", path, "before repair:", d)
		if rerr := e.repair(d, previousPartial, newPartial); rerr != nil {
			err = errors.Join(err, rerr)
		}
		d = snapshot.Diff(previousPartial, newPartial)
		metricStructuralRediffs.WithLabelValues(e.root).Inc()
	}
	l.Debugln(e, "scoped update at", path, d)

	e.running.Remove(previousPartial)
	e.running.Add(newPartial)
	return d, err
}

// existingAncestor returns the closest ancestor of path, below or at the
// root, that exists.
func (e *Emitter) existingAncestor(path string) string {
	filesystem := e.scanner.Filesystem()
	for dir := filepath.Dir(path); snapshot.IsWithin(dir, e.root); dir = filepath.Dir(dir) {
		if info, err := filesystem.Lstat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return e.root
}

// vanished returns true if err says that path itself does not exist.
func vanished(err error, path string) bool {
	var se *snapshot.ScanError
	return errors.As(err, &se) && se.Path == path && fs.IsNotExist(se.Err)
}
