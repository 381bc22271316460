// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fs abstracts the parts of filesystem access needed to snapshot and
// watch a directory tree. All names are absolute paths.
package fs

import (
	"context"
	"errors"
	"os"
	"time"
)

// The Filesystem interface abstracts access to the file system.
type Filesystem interface {
	Lstat(name string) (FileInfo, error)
	DirNames(name string) ([]string, error)
	// Watch reports changes at and below name (only directly below it if
	// recursive is false). Paths matched by ignore are not reported.
	Watch(name string, ignore Matcher, ctx context.Context, recursive bool) (<-chan Event, <-chan error, error)
	// Realpath returns the absolute form of name with symlinks resolved.
	// A name that does not exist is returned cleaned but unresolved.
	Realpath(name string) (string, error)
	Type() FilesystemType
	URI() string
}

// The FileInfo interface is almost the same as os.FileInfo, but with the
// identity of the underlying object exposed.
type FileInfo interface {
	Name() string
	Size() int64
	ModTime() time.Time
	IsDir() bool
	IsSymlink() bool
	// Identity returns the device and inode numbers, or zeroes where the
	// platform has no such concept.
	Identity() (dev, ino uint64)
}

// Matcher decides whether a path is to be skipped.
type Matcher interface {
	Match(name string) bool
}

type EventType int

const (
	NonRemove EventType = 1 + iota
	Remove
	Mixed // Should probably not be necessary to be used in filesystem interface implementation
)

// Overflow is set on an event signalling that the backend dropped events;
// its Name is the watched root.
const Overflow EventType = 1 << 2

func (evType EventType) Merge(other EventType) EventType {
	return evType | other
}

func (evType EventType) IsOverflow() bool {
	return evType&Overflow != 0
}

func (evType EventType) String() string {
	switch evType &^ Overflow {
	case NonRemove:
		return "non-remove"
	case Remove:
		return "remove"
	case Mixed:
		return "mixed"
	default:
		panic("bug: Unknown event type")
	}
}

type Event struct {
	Name string
	Type EventType
}

type FilesystemType int

const (
	FilesystemTypeBasic FilesystemType = iota // default is basic
	FilesystemTypeFake
)

func (t FilesystemType) String() string {
	switch t {
	case FilesystemTypeBasic:
		return "basic"
	case FilesystemTypeFake:
		return "fake"
	default:
		return "unknown"
	}
}

var (
	ErrWatchNotSupported = errors.New("watching is not supported")
	ErrWatchStopped      = errors.New("watching stopped")
)

// IsNotExist is the equivalent of os.IsNotExist, unwrapping errors.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// NewFilesystem returns a Filesystem of the given type, wrapped to record
// operation metrics. The uri is only meaningful for the fake type, where
// equal uris share the same in-memory tree.
func NewFilesystem(fsType FilesystemType, uri string) Filesystem {
	var fs Filesystem
	switch fsType {
	case FilesystemTypeFake:
		fs = NewFakeFilesystem(uri)
	default:
		fs = NewBasicFilesystem()
	}
	return NewMetricsFilesystem(fs)
}
