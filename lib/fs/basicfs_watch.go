// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !(solaris && !cgo) && !(darwin && !cgo) && !(android && amd64)
// +build !solaris cgo
// +build !darwin cgo
// +build !android !amd64

package fs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/syncthing/notify"
)

// Events requested from the backend, and the subset reported as removals.
const (
	watchedEvents = notify.Create | notify.Remove | notify.Write | notify.Rename
	removeEvents  = notify.Remove | notify.Rename
)

// backendBuffer sizes the channel notify writes into. Notify drops events
// rather than block, so it must be buffered; a full buffer is reported as
// an overflow.
var backendBuffer = 500

var errMaxUserWatches = errors.New("failed to set up inotify handler, please increase inotify limits (fs.inotify.max_user_watches)")

func (f *BasicFilesystem) Watch(name string, ignore Matcher, ctx context.Context, recursive bool) (<-chan Event, <-chan error, error) {
	root, err := filepath.Abs(name)
	if err != nil {
		return nil, nil, err
	}
	target := root
	if recursive {
		target = filepath.Join(root, "...")
	}

	w := newNotifyWatch(root, ignore, make(chan notify.EventInfo, backendBuffer))
	if err := notify.WatchWithFilter(target, w.backend, w.skip, watchedEvents); err != nil {
		notify.Stop(w.backend)
		if reachedMaxUserWatches(err) {
			return nil, nil, errMaxUserWatches
		}
		return nil, nil, err
	}
	go w.run(ctx)
	return w.out, w.errs, nil
}

// A notifyWatch translates backend notifications under one root into
// Events.
type notifyWatch struct {
	root    string
	ignore  Matcher
	backend chan notify.EventInfo
	out     chan Event
	errs    chan error
}

func newNotifyWatch(root string, ignore Matcher, backend chan notify.EventInfo) *notifyWatch {
	return &notifyWatch{
		root:    root,
		ignore:  ignore,
		backend: backend,
		out:     make(chan Event),
		errs:    make(chan error),
	}
}

// skip is the backend side filter. Names that are not valid UTF-8 are
// never reported.
func (w *notifyWatch) skip(name string) bool {
	if !utf8.ValidString(name) {
		return true
	}
	return w.ignore != nil && w.ignore.Match(name)
}

func (w *notifyWatch) run(ctx context.Context) {
	defer notify.Stop(w.backend)
	defer l.Debugln("watch", w.root, "stopped")

	for {
		if w.overflowed() {
			l.Debugln("watch", w.root, "overflowed, reporting root")
			if !w.send(ctx, Event{Name: w.root, Type: NonRemove | Overflow}) {
				return
			}
		}

		var info notify.EventInfo
		select {
		case info = <-w.backend:
		case <-ctx.Done():
			return
		}

		name := filepath.Clean(info.Path())
		if !isWithin(name, w.root) {
			err := fmt.Errorf("event %q outside of watched root %q", name, w.root)
			l.Debugln("watch", w.root, "failing:", err)
			select {
			case w.errs <- err:
			case <-ctx.Done():
			}
			return
		}
		if w.ignore != nil && w.ignore.Match(name) {
			continue
		}

		typ := NonRemove
		if info.Event()&removeEvents != 0 {
			typ = Remove
		}
		if !w.send(ctx, Event{Name: name, Type: typ}) {
			return
		}
	}
}

// overflowed reports whether the backend buffer filled up, discarding its
// contents if so.
func (w *notifyWatch) overflowed() bool {
	if len(w.backend) < cap(w.backend) {
		return false
	}
	for {
		select {
		case <-w.backend:
		default:
			return true
		}
	}
}

func (w *notifyWatch) send(ctx context.Context, ev Event) bool {
	select {
	case w.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// isWithin reports whether name is root or below it.
func isWithin(name, root string) bool {
	if name == root {
		return true
	}
	return strings.HasPrefix(name, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
