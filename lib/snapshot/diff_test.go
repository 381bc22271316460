// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"testing"
	"time"

	"github.com/d4l3k/messagediff"
)

func file(path string, ino uint64, mtime int64, size int64) Entry {
	return Entry{
		Path:     path,
		Kind:     KindFile,
		Identity: Identity{Dev: 1, Ino: ino},
		ModTime:  time.Unix(mtime, 0),
		Size:     size,
	}
}

func dir(path string, ino uint64, mtime int64) Entry {
	return Entry{
		Path:     path,
		Kind:     KindDirectory,
		Identity: Identity{Dev: 1, Ino: ino},
		ModTime:  time.Unix(mtime, 0),
	}
}

func TestDiffIdempotence(t *testing.T) {
	snaps := []*Snapshot{
		New("/w", true),
		New("/w", true, dir("/w", 1, 1)),
		buildTestSnapshot(t),
		New("/w", true, dir("/w", 1, 1), file("/w/a", 2, 1, 1), file("/w/hardlink", 2, 1, 1), file("/w/noid", 0, 1, 1)),
	}
	for i, s := range snaps {
		if d := Diff(s, s); !d.Empty() {
			t.Errorf("#%d: diff against self is not empty: %v", i, d)
		}
		if d := Diff(s, s.Clone()); !d.Empty() {
			t.Errorf("#%d: diff against clone is not empty: %v", i, d)
		}
	}
}

func TestDiff(t *testing.T) {
	root := dir("/w", 1, 1)

	cases := []struct {
		name     string
		before   []Entry
		after    []Entry
		expected DiffResult
	}{
		{
			name:   "created",
			before: []Entry{root},
			after:  []Entry{root, file("/w/a", 2, 1, 1), dir("/w/d", 3, 1)},
			expected: DiffResult{
				FilesCreated: []string{"/w/a"},
				DirsCreated:  []string{"/w/d"},
			},
		},
		{
			name:   "deleted",
			before: []Entry{root, file("/w/a", 2, 1, 1), dir("/w/d", 3, 1), file("/w/d/b", 4, 1, 1)},
			after:  []Entry{root},
			expected: DiffResult{
				FilesDeleted: []string{"/w/a", "/w/d/b"},
				DirsDeleted:  []string{"/w/d"},
			},
		},
		{
			name:   "modified",
			before: []Entry{root, file("/w/a", 2, 1, 1), file("/w/b", 3, 1, 1), dir("/w/d", 4, 1)},
			after:  []Entry{dir("/w", 1, 2), file("/w/a", 2, 2, 1), file("/w/b", 3, 1, 2), dir("/w/d", 4, 1)},
			expected: DiffResult{
				FilesModified: []string{"/w/a", "/w/b"},
				DirsModified:  []string{"/w"},
			},
		},
		{
			name:   "moved",
			before: []Entry{root, file("/w/a", 2, 1, 1), dir("/w/d1", 3, 1)},
			after:  []Entry{root, file("/w/b", 2, 1, 1), dir("/w/d2", 3, 1)},
			expected: DiffResult{
				FilesMoved: []Move{{"/w/a", "/w/b"}},
				DirsMoved:  []Move{{"/w/d1", "/w/d2"}},
			},
		},
		{
			name:   "moved and modified is only moved",
			before: []Entry{root, file("/w/a", 2, 1, 1)},
			after:  []Entry{root, file("/w/b", 2, 5, 7)},
			expected: DiffResult{
				FilesMoved: []Move{{"/w/a", "/w/b"}},
			},
		},
		{
			name:   "zero identity is never moved",
			before: []Entry{root, file("/w/a", 0, 1, 1)},
			after:  []Entry{root, file("/w/b", 0, 1, 1)},
			expected: DiffResult{
				FilesCreated: []string{"/w/b"},
				FilesDeleted: []string{"/w/a"},
			},
		},
		{
			name:   "same identity different kind is not a move",
			before: []Entry{root, file("/w/a", 2, 1, 1)},
			after:  []Entry{root, dir("/w/b", 2, 1)},
			expected: DiffResult{
				FilesDeleted: []string{"/w/a"},
				DirsCreated:  []string{"/w/b"},
			},
		},
		{
			name:   "kind change",
			before: []Entry{root, file("/w/x", 2, 1, 1)},
			after:  []Entry{root, dir("/w/x", 3, 1)},
			expected: DiffResult{
				FilesDeleted: []string{"/w/x"},
				DirsCreated:  []string{"/w/x"},
			},
		},
		{
			name:   "replaced file is modified",
			before: []Entry{root, file("/w/a", 2, 1, 1)},
			after:  []Entry{root, file("/w/a", 3, 1, 1)},
			expected: DiffResult{
				FilesModified: []string{"/w/a"},
			},
		},
		{
			name:   "replaced directory is deleted and created",
			before: []Entry{root, dir("/w/d", 2, 1), file("/w/d/f", 3, 1, 1)},
			after:  []Entry{root, dir("/w/d", 4, 1)},
			expected: DiffResult{
				FilesDeleted: []string{"/w/d/f"},
				DirsCreated:  []string{"/w/d"},
				DirsDeleted:  []string{"/w/d"},
			},
		},
		{
			name:   "directory renamed over a replaced one",
			before: []Entry{root, dir("/w/d", 2, 1), dir("/w/e", 3, 1)},
			after:  []Entry{root, dir("/w/d", 3, 1)},
			expected: DiffResult{
				DirsDeleted: []string{"/w/d"},
				DirsMoved:   []Move{{"/w/e", "/w/d"}},
			},
		},
		{
			name:   "file renamed over another",
			before: []Entry{root, file("/w/a", 2, 1, 1), file("/w/b", 3, 1, 1)},
			after:  []Entry{root, file("/w/a", 3, 1, 1)},
			expected: DiffResult{
				FilesDeleted: []string{"/w/a"},
				FilesMoved:   []Move{{"/w/b", "/w/a"}},
			},
		},
		{
			name:   "swapped files",
			before: []Entry{root, file("/w/a", 2, 1, 1), file("/w/b", 3, 1, 1)},
			after:  []Entry{root, file("/w/a", 3, 1, 1), file("/w/b", 2, 1, 1)},
			expected: DiffResult{
				FilesMoved: []Move{{"/w/a", "/w/b"}, {"/w/b", "/w/a"}},
			},
		},
		{
			name:   "hard links pair smallest paths",
			before: []Entry{root, file("/w/z", 2, 1, 1), file("/w/y", 2, 1, 1)},
			after:  []Entry{root, file("/w/c", 2, 1, 1), file("/w/b", 2, 1, 1)},
			expected: DiffResult{
				FilesCreated: []string{"/w/c"},
				FilesDeleted: []string{"/w/z"},
				FilesMoved:   []Move{{"/w/y", "/w/b"}},
			},
		},
		{
			name:   "directory move with content",
			before: []Entry{root, file("/w/a.txt", 2, 1, 1), dir("/w/dir1", 3, 1), file("/w/dir1/b.txt", 4, 1, 1)},
			after:  []Entry{root, file("/w/a.txt", 2, 1, 1), dir("/w/dir2", 3, 1), file("/w/dir2/b.txt", 4, 1, 1)},
			expected: DiffResult{
				FilesMoved: []Move{{"/w/dir1/b.txt", "/w/dir2/b.txt"}},
				DirsMoved:  []Move{{"/w/dir1", "/w/dir2"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Diff(New("/w", true, tc.before...), New("/w", true, tc.after...))
			if diff, equal := messagediff.PrettyDiff(tc.expected, d); !equal {
				t.Errorf("Unexpected diff result. Diff:\n%s", diff)
			}
		})
	}
}

func TestDiffCompleteness(t *testing.T) {
	before := New("/w", true, dir("/w", 1, 1), file("/w/keep", 2, 1, 1))
	after := before.Clone()
	var expected []string
	for i, name := range []string{"/w/n1", "/w/n2", "/w/n3"} {
		after.Add(New("/w", true, file(name, uint64(10+i), 1, 1)))
		expected = append(expected, name)
	}

	d := Diff(before, after)
	if diff, equal := messagediff.PrettyDiff(expected, d.FilesCreated); !equal {
		t.Errorf("Unexpected creations. Diff:\n%s", diff)
	}
	if d.Len() != len(expected) {
		t.Errorf("New paths should only be reported as created, got %v", d)
	}
}

func TestDiffMoveSymmetry(t *testing.T) {
	before := New("/w", true, dir("/w", 1, 1), file("/w/p1", 7, 1, 1), file("/w/other", 8, 1, 1))
	after := New("/w", true, dir("/w", 1, 1), file("/w/p2", 7, 1, 1), file("/w/other", 8, 1, 1))

	d := Diff(before, after)
	expected := DiffResult{FilesMoved: []Move{{"/w/p1", "/w/p2"}}}
	if diff, equal := messagediff.PrettyDiff(expected, d); !equal {
		t.Errorf("Unexpected diff result. Diff:\n%s", diff)
	}

	// And back again
	d = Diff(after, before)
	expected = DiffResult{FilesMoved: []Move{{"/w/p2", "/w/p1"}}}
	if diff, equal := messagediff.PrettyDiff(expected, d); !equal {
		t.Errorf("Unexpected reverse diff result. Diff:\n%s", diff)
	}
}

func TestDiffResultHelpers(t *testing.T) {
	var d DiffResult
	if !d.Empty() || d.HasStructuralChanges() {
		t.Error("Zero result should be empty")
	}

	d.FilesModified = []string{"/w/a"}
	d.DirsModified = []string{"/w"}
	if d.Empty() || d.Len() != 2 || d.HasStructuralChanges() {
		t.Error("Modifications are not structural")
	}

	for _, s := range []DiffResult{
		{DirsCreated: []string{"/w/d"}},
		{DirsDeleted: []string{"/w/d"}},
		{DirsMoved: []Move{{"/w/d", "/w/e"}}},
	} {
		if !s.HasStructuralChanges() {
			t.Errorf("%v should be structural", s)
		}
	}
}
