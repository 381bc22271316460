// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"fmt"
	"time"

	"github.com/snapwatch/snapwatch/lib/fs"
)

type Kind int

const (
	// KindFile is anything that is not a directory, symlinks included.
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Identity is what stays the same when an object is renamed: the device
// and inode numbers. The zero Identity is unknown.
type Identity struct {
	Dev uint64
	Ino uint64
}

func (i Identity) IsZero() bool {
	return i.Dev == 0 && i.Ino == 0
}

func (i Identity) String() string {
	return fmt.Sprintf("%d:%d", i.Dev, i.Ino)
}

// An Entry is one filesystem object as seen when it was scanned.
type Entry struct {
	Path     string
	Kind     Kind
	Identity Identity
	ModTime  time.Time
	Size     int64 // zero for directories
}

func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Changed returns true if other, being the same object at the same path,
// looks modified compared to e.
func (e Entry) Changed(other Entry) bool {
	if !e.ModTime.Equal(other.ModTime) {
		return true
	}
	return e.Kind == KindFile && e.Size != other.Size
}

func (e Entry) String() string {
	return fmt.Sprintf("%s{%s, ino %v, mtime %v, size %d}", e.Kind, e.Path, e.Identity, e.ModTime.UnixNano(), e.Size)
}

// EntryFromInfo returns the Entry for the object at path described by info.
func EntryFromInfo(path string, info fs.FileInfo) Entry {
	dev, ino := info.Identity()
	e := Entry{
		Path:     path,
		Kind:     KindFile,
		Identity: Identity{Dev: dev, Ino: ino},
		ModTime:  info.ModTime(),
	}
	if info.IsDir() && !info.IsSymlink() {
		e.Kind = KindDirectory
	} else {
		e.Size = info.Size()
	}
	return e
}

// ScanError is returned when (part of) a tree could not be scanned.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
