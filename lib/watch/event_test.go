// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"testing"

	"github.com/d4l3k/messagediff"
	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/snapshot"
)

func TestAppendEvents(t *testing.T) {
	d := snapshot.DiffResult{
		FilesCreated:  []string{"/w/fc"},
		FilesDeleted:  []string{"/w/fd1", "/w/fd2"},
		FilesModified: []string{"/w/fm"},
		FilesMoved:    []snapshot.Move{{From: "/w/f1", To: "/w/f2"}},
		DirsCreated:   []string{"/w/dc"},
		DirsDeleted:   []string{"/w/dd"},
		DirsModified:  []string{"/w/dm"},
		DirsMoved:     []snapshot.Move{{From: "/w/d1", To: "/w/d2"}},
	}

	prev := []Event{ev(events.FileCreated, "/w/earlier")}
	evs := AppendEvents(prev, "/w", d)

	expected := []Event{
		ev(events.FileCreated, "/w/earlier"),
		ev(events.FileDeleted, "/w/fd1"),
		ev(events.FileDeleted, "/w/fd2"),
		ev(events.FileModified, "/w/fm"),
		ev(events.FileCreated, "/w/fc"),
		mv(events.FileMoved, "/w/f1", "/w/f2"),
		ev(events.DirDeleted, "/w/dd"),
		ev(events.DirModified, "/w/dm"),
		ev(events.DirCreated, "/w/dc"),
		mv(events.DirMoved, "/w/d1", "/w/d2"),
	}
	if diff, equal := messagediff.PrettyDiff(expected, evs); !equal {
		t.Errorf("Unexpected events. Diff:\n%s", diff)
	}

	if evs := AppendEvents(nil, "/w", snapshot.DiffResult{}); evs != nil {
		t.Errorf("Expected no events, got %v", evs)
	}
}
