// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package build holds the version information injected at link time.
package build

import (
	"fmt"
	"regexp"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
)

const unknownVersion = "unknown-dev"

var (
	// Overridden with -ldflags "-X github.com/snapwatch/snapwatch/lib/build.Version=v1.2.3"
	// and likewise for Host, User and Stamp (Unix seconds).
	Version = unknownVersion
	Host    = "unknown"
	User    = "unknown"
	Stamp   = "0"

	// Derived from the above when the package is initialized.
	Date        time.Time
	IsRelease   bool
	IsBeta      bool
	LongVersion string
)

// A release version is "v1.2.3", optionally with a prerelease tag such as
// "-rc.1", and nothing after that.
var releaseExp = regexp.MustCompile(`^v\d+\.\d+\.\d+(-[a-z]+[\d\.]+)?$`)

func init() {
	fromModuleInfo()
	setBuildData()
}

// fromModuleInfo fills in Version and Stamp from the module build info when
// they were not set by the linker, as for "go install".
func fromModuleInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == unknownVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Stamp != "0" {
		return
	}
	for _, s := range info.Settings {
		if s.Key != "vcs.time" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
			Stamp = strconv.FormatInt(t.Unix(), 10)
		}
	}
}

func setBuildData() {
	IsRelease = releaseExp.MatchString(Version)
	// Anything with a suffix is a prerelease or a development build.
	IsBeta = strings.Contains(Version, "-")

	secs, _ := strconv.ParseInt(Stamp, 10, 64)
	Date = time.Unix(secs, 0)

	LongVersion = fmt.Sprintf("snapwatch %s (%s %s-%s) %s@%s %s",
		Version, runtime.Version(), runtime.GOOS, runtime.GOARCH,
		User, Host, Date.UTC().Format("2006-01-02 15:04:05 MST"))
}
