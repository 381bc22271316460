// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"fmt"

	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/snapshot"
)

// An Event is one change as delivered to a Sink.
type Event struct {
	Type events.EventType
	Data events.ChangeData
}

func (ev Event) String() string {
	if ev.Data.Dest != "" {
		return fmt.Sprintf("%v %s -> %s", ev.Type, ev.Data.Path, ev.Data.Dest)
	}
	return fmt.Sprintf("%v %s", ev.Type, ev.Data.Path)
}

// AppendEvents appends the events for d to evs in a fixed order: files
// deleted, modified, created and moved, then directories in the same order.
func AppendEvents(evs []Event, watch string, d snapshot.DiffResult) []Event {
	paths := func(t events.EventType, ps []string) {
		for _, p := range ps {
			evs = append(evs, Event{Type: t, Data: events.ChangeData{Watch: watch, Path: p}})
		}
	}
	moves := func(t events.EventType, ms []snapshot.Move) {
		for _, m := range ms {
			evs = append(evs, Event{Type: t, Data: events.ChangeData{Watch: watch, Path: m.From, Dest: m.To}})
		}
	}

	paths(events.FileDeleted, d.FilesDeleted)
	paths(events.FileModified, d.FilesModified)
	paths(events.FileCreated, d.FilesCreated)
	moves(events.FileMoved, d.FilesMoved)
	paths(events.DirDeleted, d.DirsDeleted)
	paths(events.DirModified, d.DirsModified)
	paths(events.DirCreated, d.DirsCreated)
	moves(events.DirMoved, d.DirsMoved)

	return evs
}
