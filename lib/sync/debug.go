// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package sync

import (
	"os"
	"strconv"
	"time"

	"github.com/snapwatch/snapwatch/lib/logger"
)

var l = logger.DefaultLogger.NewFacility("sync", "Lock hold times")

// debug is sampled once at startup; NewMutex picks the logging variant
// from it.
var debug = l.ShouldDebug("sync")

// threshold is how long a lock may be held before it is reported.
var threshold = parseThreshold(os.Getenv("SNAPWATCH_LOCKTHRESHOLD"), 100*time.Millisecond)

// parseThreshold accepts a duration ("250ms") or a plain number of
// milliseconds.
func parseThreshold(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
