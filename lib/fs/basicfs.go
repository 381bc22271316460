// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fs

import (
	"os"
	"path/filepath"
)

// The BasicFilesystem implements all aspects by delegating to package os.
type BasicFilesystem struct{}

func NewBasicFilesystem() *BasicFilesystem {
	return new(BasicFilesystem)
}

func (*BasicFilesystem) Lstat(name string) (FileInfo, error) {
	fi, err := os.Lstat(name)
	if err != nil {
		return nil, err
	}
	return basicFileInfo{fi}, nil
}

func (*BasicFilesystem) DirNames(name string) ([]string, error) {
	fd, err := os.OpenFile(name, os.O_RDONLY, 0o777)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	names, err := fd.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	return names, nil
}

func (*BasicFilesystem) Realpath(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if IsNotExist(err) {
		return abs, nil
	}
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func (*BasicFilesystem) Type() FilesystemType {
	return FilesystemTypeBasic
}

func (*BasicFilesystem) URI() string {
	return "basic://"
}

// basicFileInfo implements the FileInfo interface on top of an os.FileInfo.
type basicFileInfo struct {
	os.FileInfo
}

func (e basicFileInfo) IsSymlink() bool {
	return e.FileInfo.Mode()&os.ModeSymlink != 0
}
