// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrStopped     = errors.New("watch is stopped")
	ErrNotStarted  = errors.New("watch is not started")
	ErrLockTimeout = errors.New("timed out acquiring the watch lock")
)

// LockTimeoutError is returned when the per watch lock could not be
// acquired in time. It indicates a deadlock and is fatal for the watch.
type LockTimeoutError struct {
	Root    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("%s: %v after %v", e.Root, ErrLockTimeout, e.Timeout)
}

func (e *LockTimeoutError) Unwrap() error {
	return ErrLockTimeout
}

// IsFatal returns true if err means the watch cannot continue. Other
// errors, such as those from scanning, leave the watch usable.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStopped) || errors.Is(err, ErrNotStarted) || errors.Is(err, ErrLockTimeout)
}
