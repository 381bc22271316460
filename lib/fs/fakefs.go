// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fs

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FakeFilesystem is an in-memory filesystem for testing. It has the
// following properties:
//
//   - File metadata is kept in RAM: which files and directories exist,
//     their sizes, modification times and inode numbers. There is no file
//     content and no symlinks.
//
//   - Time is logical. Every mutation advances the clock by one second, so
//     two successive writes to a file always differ in modification time.
//
//   - Parent directory modification times are left alone unless
//     SetTouchParents(true) is called, which mimics real filesystems.
//
//   - Two FakeFilesystems with the same uri see the same files.
type FakeFilesystem struct {
	counters     FakeCounters
	uri          string
	mut          sync.Mutex
	root         *fakeEntry
	nextIno      uint64
	clock        time.Time
	touchParents bool
	dirNamesErrs map[string]error
}

type FakeCounters struct {
	Lstat    int64
	DirNames int64
}

var (
	fakeFSMut   sync.Mutex
	fakeFSCache = make(map[string]*FakeFilesystem)
)

const fakeDev = 1

func NewFakeFilesystem(uri string) *FakeFilesystem {
	fakeFSMut.Lock()
	defer fakeFSMut.Unlock()

	if fs, ok := fakeFSCache[uri]; ok {
		// Already have an fs at this uri
		return fs
	}

	fs := &FakeFilesystem{
		uri:          "fake://" + uri,
		clock:        time.Unix(1700000000, 0),
		dirNamesErrs: make(map[string]error),
	}
	fs.root = fs.newEntry("/", true)
	fakeFSCache[uri] = fs
	return fs
}

// fakeEntry is an entry (file or directory) in the fake filesystem
type fakeEntry struct {
	name     string
	isDir    bool
	size     int64
	mtime    time.Time
	ino      uint64
	children map[string]*fakeEntry
}

func (fs *FakeFilesystem) newEntry(name string, isDir bool) *fakeEntry {
	fs.nextIno++
	e := &fakeEntry{
		name:  name,
		isDir: isDir,
		mtime: fs.clock,
		ino:   fs.nextIno,
	}
	if isDir {
		e.children = make(map[string]*fakeEntry)
	}
	return e
}

func fakeClean(name string) string {
	return path.Clean("/" + filepath.ToSlash(name))
}

func (fs *FakeFilesystem) entryForName(name string) *fakeEntry {
	name = fakeClean(name)
	if name == "/" {
		return fs.root
	}

	entry := fs.root
	for _, comp := range strings.Split(strings.Trim(name, "/"), "/") {
		if !entry.isDir {
			return nil
		}
		var ok bool
		entry, ok = entry.children[comp]
		if !ok {
			return nil
		}
	}
	return entry
}

// tick advances the logical clock and touches the parent of name if
// configured to do so. Must be called with the lock held.
func (fs *FakeFilesystem) tick(name string) {
	fs.clock = fs.clock.Add(time.Second)
	if !fs.touchParents {
		return
	}
	if parent := fs.entryForName(path.Dir(fakeClean(name))); parent != nil {
		parent.mtime = fs.clock
	}
}

func (fs *FakeFilesystem) Lstat(name string) (FileInfo, error) {
	fs.mut.Lock()
	defer fs.mut.Unlock()
	fs.counters.Lstat++

	entry := fs.entryForName(name)
	if entry == nil {
		return nil, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
	}

	info := *entry
	info.children = nil
	return &fakeFileInfo{info}, nil
}

func (fs *FakeFilesystem) DirNames(name string) ([]string, error) {
	fs.mut.Lock()
	defer fs.mut.Unlock()
	fs.counters.DirNames++

	if err, ok := fs.dirNamesErrs[fakeClean(name)]; ok {
		return nil, &os.PathError{Op: "readdirent", Path: name, Err: err}
	}

	entry := fs.entryForName(name)
	if entry == nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	if !entry.isDir {
		return nil, &os.PathError{Op: "readdirent", Path: name, Err: errors.New("not a directory")}
	}

	names := make([]string, 0, len(entry.children))
	for _, child := range entry.children {
		names = append(names, child.name)
	}
	return names, nil
}

func (*FakeFilesystem) Watch(_ string, _ Matcher, _ context.Context, _ bool) (<-chan Event, <-chan error, error) {
	return nil, nil, ErrWatchNotSupported
}

// Realpath cleans name; the fake filesystem has no symlinks.
func (*FakeFilesystem) Realpath(name string) (string, error) {
	return fakeClean(name), nil
}

func (*FakeFilesystem) Type() FilesystemType {
	return FilesystemTypeFake
}

func (fs *FakeFilesystem) URI() string {
	return fs.uri
}

// Mkdir creates a directory whose parent must exist.
func (fs *FakeFilesystem) Mkdir(name string) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	name = fakeClean(name)
	parent := fs.entryForName(path.Dir(name))
	if parent == nil {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrNotExist}
	}
	if !parent.isDir {
		return &os.PathError{Op: "mkdir", Path: name, Err: errors.New("not a directory")}
	}
	base := path.Base(name)
	if _, ok := parent.children[base]; ok {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}

	fs.tick(name)
	parent.children[base] = fs.newEntry(base, true)
	return nil
}

// MkdirAll creates a directory and any missing parents.
func (fs *FakeFilesystem) MkdirAll(name string) error {
	name = fakeClean(name)
	if name == "/" {
		return nil
	}
	if err := fs.MkdirAll(path.Dir(name)); err != nil {
		return err
	}
	if err := fs.Mkdir(name); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return nil
}

// WriteFile creates the file or, if it exists, updates its size and
// modification time. The parent directory must exist.
func (fs *FakeFilesystem) WriteFile(name string, size int64) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	name = fakeClean(name)
	if entry := fs.entryForName(name); entry != nil {
		if entry.isDir {
			return &os.PathError{Op: "open", Path: name, Err: errors.New("is a directory")}
		}
		fs.clock = fs.clock.Add(time.Second)
		entry.size = size
		entry.mtime = fs.clock
		return nil
	}

	parent := fs.entryForName(path.Dir(name))
	if parent == nil || !parent.isDir {
		return &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	fs.tick(name)
	entry := fs.newEntry(path.Base(name), false)
	entry.size = size
	parent.children[entry.name] = entry
	return nil
}

// Chtimes sets the modification time of name.
func (fs *FakeFilesystem) Chtimes(name string, mtime time.Time) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	entry := fs.entryForName(name)
	if entry == nil {
		return &os.PathError{Op: "chtimes", Path: name, Err: os.ErrNotExist}
	}
	entry.mtime = mtime
	return nil
}

// Rename moves oldname to newname, keeping its inode number. An existing
// file at newname is replaced, an existing directory is an error.
func (fs *FakeFilesystem) Rename(oldname, newname string) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	oldname, newname = fakeClean(oldname), fakeClean(newname)
	p0 := fs.entryForName(path.Dir(oldname))
	if p0 == nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrNotExist}
	}
	entry := p0.children[path.Base(oldname)]
	if entry == nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrNotExist}
	}
	p1 := fs.entryForName(path.Dir(newname))
	if p1 == nil || !p1.isDir {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrNotExist}
	}
	if dst, ok := p1.children[path.Base(newname)]; ok && dst.isDir {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errors.New("is a directory")}
	}

	fs.tick(oldname)
	fs.tick(newname)
	delete(p0.children, entry.name)
	entry.name = path.Base(newname)
	p1.children[entry.name] = entry
	return nil
}

// Remove removes a file or an empty directory.
func (fs *FakeFilesystem) Remove(name string) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	name = fakeClean(name)
	entry := fs.entryForName(name)
	if entry == nil || name == "/" {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	if len(entry.children) != 0 {
		return &os.PathError{Op: "remove", Path: name, Err: errors.New("directory not empty")}
	}

	fs.tick(name)
	delete(fs.entryForName(path.Dir(name)).children, entry.name)
	return nil
}

// RemoveAll removes name and everything below it.
func (fs *FakeFilesystem) RemoveAll(name string) error {
	fs.mut.Lock()
	defer fs.mut.Unlock()

	name = fakeClean(name)
	parent := fs.entryForName(path.Dir(name))
	if parent == nil || name == "/" {
		return nil // all tested real systems exhibit this behaviour
	}
	if _, ok := parent.children[path.Base(name)]; !ok {
		return nil
	}
	fs.tick(name)
	delete(parent.children, path.Base(name))
	return nil
}

// SetTouchParents controls whether creating, removing and renaming entries
// updates the modification time of the parent directory.
func (fs *FakeFilesystem) SetTouchParents(touch bool) {
	fs.mut.Lock()
	fs.touchParents = touch
	fs.mut.Unlock()
}

// SetDirNamesError makes DirNames fail for name with err, or succeed again
// if err is nil.
func (fs *FakeFilesystem) SetDirNamesError(name string, err error) {
	fs.mut.Lock()
	defer fs.mut.Unlock()
	if err == nil {
		delete(fs.dirNamesErrs, fakeClean(name))
		return
	}
	fs.dirNamesErrs[fakeClean(name)] = err
}

func (fs *FakeFilesystem) Counters() FakeCounters {
	fs.mut.Lock()
	defer fs.mut.Unlock()
	return fs.counters
}

type fakeFileInfo struct {
	fakeEntry
}

func (f *fakeFileInfo) Name() string {
	return f.name
}

func (f *fakeFileInfo) Size() int64 {
	return f.size
}

func (f *fakeFileInfo) ModTime() time.Time {
	return f.mtime
}

func (f *fakeFileInfo) IsDir() bool {
	return f.isDir
}

func (*fakeFileInfo) IsSymlink() bool {
	return false
}

func (f *fakeFileInfo) Identity() (uint64, uint64) {
	return fakeDev, f.ino
}
