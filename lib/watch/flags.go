// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Flags qualify a notification. The values are those of the corresponding
// FSEvents stream flags.
type Flags uint32

const (
	// MustScanSubDirs means changes may have happened anywhere below the
	// path, not only directly in it.
	MustScanSubDirs Flags = 0x1
	// UserDropped and KernelDropped mean notifications were lost and
	// nothing short of a full rescan is reliable.
	UserDropped   Flags = 0x2
	KernelDropped Flags = 0x4
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{MustScanSubDirs, "MustScanSubDirs"},
	{UserDropped, "UserDropped"},
	{KernelDropped, "KernelDropped"},
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(f)))
	}
	return strings.Join(names, "|")
}

// A Notification says that something changed in the directory at Path
// (or at the file at Path), or anywhere below it if MustScanSubDirs is set.
type Notification struct {
	Path  string
	Flags Flags
}

func (n Notification) String() string {
	return fmt.Sprintf("%s (%v)", n.Path, n.Flags)
}

// Normalize prepares a batch for reconciliation: a notification saying
// that notifications were dropped turns into a full rescan of root, and
// repeated notifications are removed keeping the first.
func Normalize(root string, batch []Notification) []Notification {
	root = filepath.Clean(root)
	res := make([]Notification, 0, len(batch))
	seen := make(map[Notification]struct{}, len(batch))
	for _, n := range batch {
		if n.Flags&(UserDropped|KernelDropped) != 0 {
			l.Debugln("Dropped notifications at", n.Path, n.Flags, "- rescanning", root)
			n = Notification{Path: root, Flags: MustScanSubDirs}
		} else {
			n.Path = filepath.Clean(n.Path)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		res = append(res, n)
	}
	return res
}
