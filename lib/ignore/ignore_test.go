// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package ignore

import (
	"testing"

	"github.com/d4l3k/messagediff"
)

func TestIgnore(t *testing.T) {
	pats, err := New([]string{
		"// comment",
		"",
		".git",
		"*.tmp",
		"/srv/data/cache/",
		"build/out",
	})
	if err != nil {
		t.Fatal(err)
	}

	var tests = []struct {
		f string
		r bool
	}{
		{"/srv/data/.git", true},
		{"/srv/data/.git/objects/ab", true},
		{"/srv/data/sub/.git", true},
		{"/srv/data/.gitignore", false},
		{"/srv/data/file.tmp", true},
		{"/srv/data/deep/er/file.tmp", true},
		{"/srv/data/file.tmpx", false},
		{"/srv/data/cache", true},
		{"/srv/data/cache/x", true},
		{"/srv/other/cache", false},
		{"/srv/data/build/out", true},
		{"/srv/data/build/out/bin", true},
		{"/srv/data/build", false},
		{"/srv/data/afile", false},
	}

	for i, tc := range tests {
		if r := pats.Match(tc.f); r != tc.r {
			t.Errorf("Incorrect Match() #%d (%s); E: %v, A: %v", i, tc.f, tc.r, r)
		}
	}
}

func TestExcludes(t *testing.T) {
	pats, err := New([]string{
		"!keep.log",
		"*.log",
		"(?i)*.BAK",
	})
	if err != nil {
		t.Fatal(err)
	}

	var tests = []struct {
		f string
		r bool
	}{
		{"/w/app.log", true},
		{"/w/keep.log", false},
		{"/w/sub/keep.log", false},
		{"/w/file.bak", true},
		{"/w/FILE.BAK", true},
		{"/w/file.Bak", true},
	}

	for i, tc := range tests {
		if r := pats.Match(tc.f); r != tc.r {
			t.Errorf("Incorrect Match() #%d (%s); E: %v, A: %v", i, tc.f, tc.r, r)
		}
	}
}

func TestNilAndEmpty(t *testing.T) {
	var m *Matcher
	if m.Match("/anything") {
		t.Error("nil matcher should match nothing")
	}
	if m.Patterns() != nil || m.Hash() != "" {
		t.Error("nil matcher should have no patterns")
	}

	m, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Match("/anything") {
		t.Error("empty matcher should match nothing")
	}
}

func TestBadPattern(t *testing.T) {
	if _, err := New([]string{"[abc"}); err == nil {
		t.Error("Expected error for unterminated character class")
	}
	if _, err := New([]string{"!"}); err == nil {
		t.Error("Expected error for empty pattern")
	}
}

func TestCaching(t *testing.T) {
	pats, err := New([]string{"*.tmp"})
	if err != nil {
		t.Fatal(err)
	}

	if pats.matches.len() != 0 {
		t.Fatal("Expected empty cache")
	}

	pats.Match("/a/b.tmp")
	pats.Match("/a/c")
	if pats.matches.len() != 2 {
		t.Fatalf("Expected two cached results, got %d", pats.matches.len())
	}

	// Cached results are returned as is
	pats.matches.set("/a/c", true)
	if !pats.Match("/a/c") {
		t.Error("Expected the cached result")
	}
}

func TestPatterns(t *testing.T) {
	pats, err := New([]string{"!(?i)Foo", "/abs/bar"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"!(?i)foo",
		"/abs/bar",
	}
	if diff, equal := messagediff.PrettyDiff(expected, pats.Patterns()); !equal {
		t.Errorf("Unexpected patterns. Diff:\n%s", diff)
	}
	if diff, equal := messagediff.PrettyDiff([]string{"!(?i)Foo", "/abs/bar"}, pats.Lines()); !equal {
		t.Errorf("Unexpected lines. Diff:\n%s", diff)
	}

	other, _ := New([]string{"!(?i)Foo", "/abs/bar"})
	if other.Hash() != pats.Hash() {
		t.Error("Equal patterns should hash equally")
	}
}
