// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fs

import (
	"errors"
	"testing"
)

func TestMetricsFilesystemPassesThrough(t *testing.T) {
	fake := NewFakeFilesystem(t.Name())
	must(t, fake.MkdirAll("/w/sub"))
	must(t, fake.WriteFile("/w/f", 3))

	mfs := NewMetricsFilesystem(fake)
	if mfs.URI() != fake.URI() {
		t.Errorf("URI %q != %q", mfs.URI(), fake.URI())
	}
	if u, ok := mfs.(interface{ Unwrap() Filesystem }); !ok || u.Unwrap() != Filesystem(fake) {
		t.Error("Unwrap should return the wrapped filesystem")
	}

	fi, err := mfs.Lstat("/w/f")
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 3 {
		t.Errorf("Unexpected size %d", fi.Size())
	}
	if _, err := mfs.Lstat("/w/missing"); !IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	names, err := mfs.DirNames("/w")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("Unexpected names %v", names)
	}

	if p, err := mfs.Realpath("/w//sub/../f"); err != nil || p != "/w/f" {
		t.Errorf("Realpath gave %q, %v", p, err)
	}

	if _, _, err := mfs.Watch("/w", nil, nil, true); !errors.Is(err, ErrWatchNotSupported) {
		t.Errorf("Expected ErrWatchNotSupported, got %v", err)
	}
}
