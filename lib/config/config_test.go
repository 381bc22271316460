// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/d4l3k/messagediff"
)

func TestDefaultValues(t *testing.T) {
	expected := OptionsConfiguration{
		NotifyDelayMs: 500,
		MaxNotifyDirs: 128,
		LockTimeoutS:  30,
	}
	cfg := New()
	if diff, equal := messagediff.PrettyDiff(expected, cfg.Options); !equal {
		t.Errorf("Default config differs. Diff:\n%s", diff)
	}
	if cfg.Options.NotifyDelay() != 500*time.Millisecond {
		t.Error("Unexpected notify delay", cfg.Options.NotifyDelay())
	}
	if cfg.Options.LockTimeout() != 30*time.Second {
		t.Error("Unexpected lock timeout", cfg.Options.LockTimeout())
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/example.yaml")
	if err != nil {
		t.Fatal(err)
	}

	expected := Configuration{
		Watches: []WatchConfiguration{
			{Path: "/srv/data", Recursive: true, Ignores: []string{".git", "*.tmp", "*.bak"}},
			{Path: "/srv/data", Ignores: []string{".git"}},
			{Path: "/home/user/inbox"},
		},
		Options: OptionsConfiguration{
			NotifyDelayMs: 250,
			MaxNotifyDirs: 128,
			LockTimeoutS:  30,
			ListenAddress: "127.0.0.1:9120",
		},
	}
	if diff, equal := messagediff.PrettyDiff(expected, cfg); !equal {
		t.Errorf("Loaded config differs. Diff:\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("testdata/nonexistent.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected a not exist error, got", err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		err  error
	}{
		{"relative path", "watches:\n  - path: data\n", ErrRelativePath},
		{"empty path", "watches:\n  - recursive: true\n", ErrEmptyPath},
		{"unknown key", "watches:\n  - path: /a\n    recurse: true\n", nil},
		{"bad ignore", "watches:\n  - path: /a\n    ignores: ['!']\n", nil},
		{"negative option", "options:\n  lockTimeoutS: -1\n", nil},
		{"bad listen address", "options:\n  listenAddress: nope\n", nil},
		{"not yaml", "watches: [", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Errorf("Expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestZeroOptionsMeanDefault(t *testing.T) {
	cfg, err := Parse([]byte("options:\n  notifyDelayMs: 0\n  maxNotifyDirs: 7\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Options.NotifyDelayMs != 500 {
		t.Error("Expected the default notify delay, got", cfg.Options.NotifyDelayMs)
	}
	if cfg.Options.MaxNotifyDirs != 7 {
		t.Error("Unexpected max notify dirs", cfg.Options.MaxNotifyDirs)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Load("testdata/example.yaml")
	if err != nil {
		t.Fatal(err)
	}
	bs, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "snapwatch.yaml")
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff, equal := messagediff.PrettyDiff(cfg, reloaded); !equal {
		t.Errorf("Reloaded config differs. Diff:\n%s", diff)
	}
}

func TestAddWatchAndCopy(t *testing.T) {
	cfg := New()
	if err := cfg.AddWatch(WatchConfiguration{Path: "/a/", Ignores: []string{"x"}}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddWatch(WatchConfiguration{Path: "/a", Ignores: []string{"y", "x"}}); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watches) != 1 {
		t.Fatalf("Expected one merged watch, got %v", cfg.Watches)
	}
	if err := cfg.AddWatch(WatchConfiguration{Path: "rel"}); !errors.Is(err, ErrRelativePath) {
		t.Error("Expected ErrRelativePath, got", err)
	}
	if len(cfg.Watches) != 1 {
		t.Errorf("Failed AddWatch changed the configuration: %v", cfg.Watches)
	}

	cp := cfg.Copy()
	cp.Watches[0].Ignores[0] = "changed"
	if cfg.Watches[0].Ignores[0] != "x" {
		t.Error("Copy shares ignores with the original")
	}
}
