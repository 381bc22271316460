// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"fmt"
	"sort"
)

// A Move is a rename of the object at From to To.
type Move struct {
	From string
	To   string
}

func (m Move) String() string {
	return fmt.Sprintf("%s -> %s", m.From, m.To)
}

// DiffResult holds the changes between two snapshots, per kind. Path lists
// are sorted, moves are sorted by their source path.
type DiffResult struct {
	FilesCreated  []string
	FilesDeleted  []string
	FilesModified []string
	FilesMoved    []Move
	DirsCreated   []string
	DirsDeleted   []string
	DirsModified  []string
	DirsMoved     []Move
}

func (d DiffResult) Empty() bool {
	return d.Len() == 0
}

func (d DiffResult) Len() int {
	return len(d.FilesCreated) + len(d.FilesDeleted) + len(d.FilesModified) + len(d.FilesMoved) +
		len(d.DirsCreated) + len(d.DirsDeleted) + len(d.DirsModified) + len(d.DirsMoved)
}

// HasStructuralChanges returns true if a directory appeared, disappeared or
// moved.
func (d DiffResult) HasStructuralChanges() bool {
	return len(d.DirsCreated)+len(d.DirsDeleted)+len(d.DirsMoved) > 0
}

func (d DiffResult) String() string {
	return fmt.Sprintf("files -%d ~%d +%d >%d, dirs -%d ~%d +%d >%d",
		len(d.FilesDeleted), len(d.FilesModified), len(d.FilesCreated), len(d.FilesMoved),
		len(d.DirsDeleted), len(d.DirsModified), len(d.DirsCreated), len(d.DirsMoved))
}

type identityKey struct {
	kind Kind
	id   Identity
}

// tentative is the set of paths per kind that are candidates for creation
// or deletion until move detection has run.
type tentative map[Kind]map[string]Entry

func (t tentative) add(e Entry) {
	if t[e.Kind] == nil {
		t[e.Kind] = make(map[string]Entry)
	}
	t[e.Kind][e.Path] = e
}

func (t tentative) has(kind Kind, path string) bool {
	_, ok := t[kind][path]
	return ok
}

func (t tentative) byIdentity() map[identityKey][]string {
	res := make(map[identityKey][]string)
	for kind, entries := range t {
		for p, e := range entries {
			if e.Identity.IsZero() {
				continue
			}
			k := identityKey{kind, e.Identity}
			res[k] = append(res[k], p)
		}
	}
	return res
}

// Diff returns the changes that turn before into after.
//
// An object whose path exists on only one side is created or deleted,
// unless an object of the same kind and identity is created or deleted
// elsewhere, in which case the pair is reported as one move. Should an
// identity show up at several paths on a side (hard links), the smallest
// old path is paired with the smallest new path and the rest are reported
// as plain creations and deletions.
//
// A path whose object was replaced by another of the same kind counts as
// deleted and created while moves are detected. For files, if neither half
// is paired, it is reported as modified. A replaced directory stays deleted
// and created, as its old content is gone with it. A path that changed kind
// is always deleted and created.
func Diff(before, after *Snapshot) DiffResult {
	created := make(tentative)
	deleted := make(tentative)
	replacedFiles := make(map[string]struct{})
	modified := make(map[Kind][]string)

	for p, oe := range before.entries {
		ne, ok := after.entries[p]
		switch {
		case !ok:
			deleted.add(oe)
		case oe.Kind != ne.Kind:
			deleted.add(oe)
			created.add(ne)
		case !oe.Identity.IsZero() && !ne.Identity.IsZero() && oe.Identity != ne.Identity:
			deleted.add(oe)
			created.add(ne)
			if oe.Kind == KindFile {
				replacedFiles[p] = struct{}{}
			}
		case oe.Changed(ne):
			modified[oe.Kind] = append(modified[oe.Kind], p)
		}
	}
	for p, ne := range after.entries {
		if _, ok := before.entries[p]; !ok {
			created.add(ne)
		}
	}

	moved := make(map[Kind][]Move)
	newByID := created.byIdentity()
	for k, oldPaths := range deleted.byIdentity() {
		newPaths, ok := newByID[k]
		if !ok {
			continue
		}
		from, to := smallest(oldPaths), smallest(newPaths)
		moved[k.kind] = append(moved[k.kind], Move{From: from, To: to})
		delete(deleted[k.kind], from)
		delete(created[k.kind], to)
	}

	for p := range replacedFiles {
		if deleted.has(KindFile, p) && created.has(KindFile, p) {
			delete(deleted[KindFile], p)
			delete(created[KindFile], p)
			modified[KindFile] = append(modified[KindFile], p)
		}
	}

	return DiffResult{
		FilesCreated:  sortedPaths(created[KindFile]),
		FilesDeleted:  sortedPaths(deleted[KindFile]),
		FilesModified: sortedStrings(modified[KindFile]),
		FilesMoved:    sortedMoves(moved[KindFile]),
		DirsCreated:   sortedPaths(created[KindDirectory]),
		DirsDeleted:   sortedPaths(deleted[KindDirectory]),
		DirsModified:  sortedStrings(modified[KindDirectory]),
		DirsMoved:     sortedMoves(moved[KindDirectory]),
	}
}

func smallest(paths []string) string {
	min := paths[0]
	for _, p := range paths[1:] {
		if p < min {
			min = p
		}
	}
	return min
}

func sortedPaths(entries map[string]Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

func sortedMoves(moves []Move) []Move {
	sort.Slice(moves, func(a, b int) bool {
		return moves[a].From < moves[b].From
	})
	return moves
}
