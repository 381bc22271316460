// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"errors"
	"path/filepath"

	"github.com/snapwatch/snapwatch/lib/fs"
)

// A Scanner builds snapshots from a filesystem.
type Scanner struct {
	filesystem fs.Filesystem
	ignores    fs.Matcher
}

// NewScanner returns a Scanner over filesystem skipping paths matched by
// ignores, which may be nil.
func NewScanner(filesystem fs.Filesystem, ignores fs.Matcher) *Scanner {
	return &Scanner{
		filesystem: filesystem,
		ignores:    ignores,
	}
}

func (s *Scanner) Filesystem() fs.Filesystem {
	return s.filesystem
}

// Build scans the tree at root. The root entry is part of the result. For a
// directory root the result also holds either all descendants (recursive)
// or the direct children. Objects disappearing during the scan are left out
// without error. If the root cannot be read, or a directory cannot be
// listed, the returned error wraps one *ScanError per failed path and the
// snapshot holds whatever could be scanned.
func (s *Scanner) Build(root string, recursive bool) (*Snapshot, error) {
	root = filepath.Clean(root)
	snap := New(root, recursive)

	if s.ignored(root) {
		l.Debugln("Build:", root, "is ignored")
		return snap, nil
	}

	info, err := s.filesystem.Lstat(root)
	if err != nil {
		return snap, &ScanError{Path: root, Err: err}
	}
	rootEntry := EntryFromInfo(root, info)
	snap.entries[root] = rootEntry

	var errs []error
	if rootEntry.IsDir() {
		errs = s.walk(snap, root, recursive, errs)
		if len(errs) > 0 {
			if se := (*ScanError)(nil); errors.As(errs[0], &se) && se.Path == root && fs.IsNotExist(se.Err) {
				// The root vanished between stat and listing.
				delete(snap.entries, root)
			}
		}
	}

	l.Debugf("Build: %s (recursive=%v): %d entries, %d errors", root, recursive, snap.Len(), len(errs))

	switch len(errs) {
	case 0:
		return snap, nil
	case 1:
		return snap, errs[0]
	default:
		return snap, errors.Join(errs...)
	}
}

func (s *Scanner) walk(snap *Snapshot, dir string, recursive bool, errs []error) []error {
	names, err := s.filesystem.DirNames(dir)
	if err != nil {
		if fs.IsNotExist(err) && dir != snap.root {
			delete(snap.entries, dir)
			return errs
		}
		return append(errs, &ScanError{Path: dir, Err: err})
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if s.ignored(path) {
			continue
		}
		info, err := s.filesystem.Lstat(path)
		if fs.IsNotExist(err) {
			continue
		} else if err != nil {
			errs = append(errs, &ScanError{Path: path, Err: err})
			continue
		}
		e := EntryFromInfo(path, info)
		snap.entries[path] = e
		if recursive && e.IsDir() {
			errs = s.walk(snap, path, recursive, errs)
		}
	}
	return errs
}

func (s *Scanner) ignored(path string) bool {
	return s.ignores != nil && s.ignores.Match(path)
}
