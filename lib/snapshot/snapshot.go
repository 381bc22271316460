// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package snapshot records the state of a directory tree at one point in
// time and computes the changes between two such records.
package snapshot

import (
	"path/filepath"
	"sort"
	"strings"
)

// A Snapshot maps paths to entries for a root and, when recursive, all of
// its descendants. Apart from Add and Remove a Snapshot is never modified
// after construction. A Snapshot is not safe for concurrent mutation.
type Snapshot struct {
	root      string
	recursive bool
	entries   map[string]Entry
}

// New returns a snapshot holding the given entries. Later entries replace
// earlier ones with the same path.
func New(root string, recursive bool, entries ...Entry) *Snapshot {
	s := &Snapshot{
		root:      filepath.Clean(root),
		recursive: recursive,
		entries:   make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		s.entries[e.Path] = e
	}
	return s
}

func (s *Snapshot) Root() string {
	return s.root
}

func (s *Snapshot) Recursive() bool {
	return s.recursive
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

func (s *Snapshot) Get(path string) (Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// Paths returns all paths in the snapshot, sorted.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns all entries in the snapshot, sorted by path.
func (s *Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for _, p := range s.Paths() {
		entries = append(entries, s.entries[p])
	}
	return entries
}

func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		root:      s.root,
		recursive: s.recursive,
		entries:   make(map[string]Entry, len(s.entries)),
	}
	for p, e := range s.entries {
		c.entries[p] = e
	}
	return c
}

// Subset returns a new snapshot with the entry at subroot plus either all
// of its descendants (recursive) or its direct children, which is what a
// fresh scan with the same arguments would contain.
func (s *Snapshot) Subset(subroot string, recursive bool) *Snapshot {
	subroot = filepath.Clean(subroot)
	sub := &Snapshot{
		root:      subroot,
		recursive: recursive,
		entries:   make(map[string]Entry),
	}
	for p, e := range s.entries {
		if inScope(p, subroot, recursive) {
			sub.entries[p] = e
		}
	}
	return sub
}

// MergeMultiple returns the union of the subsets at each of the given
// paths.
func (s *Snapshot) MergeMultiple(paths []string, recursive bool) *Snapshot {
	merged := &Snapshot{
		root:      s.root,
		recursive: recursive,
		entries:   make(map[string]Entry),
	}
	for _, p := range paths {
		merged.Add(s.Subset(p, recursive))
	}
	return merged
}

// Add adds all entries of other to s, replacing entries with the same path.
func (s *Snapshot) Add(other *Snapshot) {
	for p, e := range other.entries {
		s.entries[p] = e
	}
}

// Remove removes from s every path present in other.
func (s *Snapshot) Remove(other *Snapshot) {
	for p := range other.entries {
		delete(s.entries, p)
	}
}

// inScope returns true if name is root itself, a descendant of root
// (recursive) or a direct child of root (non-recursive).
func inScope(name, root string, recursive bool) bool {
	if name == root {
		return true
	}
	if !recursive {
		return filepath.Dir(name) == root
	}
	return IsWithin(name, root)
}

// IsWithin returns true if name is strictly below root.
func IsWithin(name, root string) bool {
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return len(name) > len(root) && strings.HasPrefix(name, root)
}
