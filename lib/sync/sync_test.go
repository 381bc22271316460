// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package sync

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snapwatch/snapwatch/lib/logger"
)

const (
	shortHold = 5 * time.Millisecond
	longHold  = 150 * time.Millisecond
)

// setDebug switches lock logging for the duration of the test.
func setDebug(t *testing.T, on bool) {
	prev := debug
	debug = on
	l.SetDebug("sync", on)
	t.Cleanup(func() {
		debug = prev
		l.SetDebug("sync", prev)
	})
}

func TestNewMutexVariant(t *testing.T) {
	setDebug(t, false)
	if _, ok := NewMutex().(*sync.Mutex); !ok {
		t.Error("Expected a plain mutex without debugging")
	}

	setDebug(t, true)
	if _, ok := NewMutex().(*loggedMutex); !ok {
		t.Error("Expected a logged mutex with debugging")
	}
}

func TestLoggedMutexReportsLongHolds(t *testing.T) {
	// A sleep far beyond its request means the host cannot time this.
	t0 := time.Now()
	time.Sleep(shortHold)
	if time.Since(t0) > longHold/3 {
		t.Skip("timer too inaccurate")
	}

	setDebug(t, true)
	prevThreshold := threshold
	threshold = longHold / 2
	t.Cleanup(func() { threshold = prevThreshold })

	var reported atomic.Int32
	l.AddHandler(logger.LevelDebug, func(_ logger.LogLevel, msg string) {
		if strings.Contains(msg, "Mutex held for") {
			reported.Add(1)
		}
	})

	mut := NewMutex()
	mut.Lock()
	time.Sleep(shortHold)
	mut.Unlock()
	if n := reported.Load(); n != 0 {
		t.Errorf("Short hold reported %d times", n)
	}

	mut.Lock()
	time.Sleep(longHold)
	mut.Unlock()
	if n := reported.Load(); n != 1 {
		t.Errorf("Long hold reported %d times, expected once", n)
	}
}

func TestParseThreshold(t *testing.T) {
	cases := []struct {
		in  string
		exp time.Duration
	}{
		{"", time.Second},
		{"250", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"-5", time.Second},
		{"0ms", time.Second},
		{"soon", time.Second},
	}
	for _, tc := range cases {
		if got := parseThreshold(tc.in, time.Second); got != tc.exp {
			t.Errorf("parseThreshold(%q) = %v, expected %v", tc.in, got, tc.exp)
		}
	}
}

func TestTimeoutMutex(t *testing.T) {
	mut := NewTimeoutMutex()

	if !mut.TryLockTimeout(0) {
		t.Fatal("Unlocked mutex should be acquired immediately")
	}

	t0 := time.Now()
	if mut.TryLockTimeout(20 * time.Millisecond) {
		t.Fatal("Held mutex should not be acquired")
	}
	if time.Since(t0) < 20*time.Millisecond {
		t.Error("TryLockTimeout returned before the timeout")
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(shortHold)
		mut.Unlock()
		close(released)
	}()
	if !mut.TryLockTimeout(time.Second) {
		t.Fatal("Mutex should be acquired once released")
	}
	<-released
	mut.Unlock()

	mut.Lock()
	mut.Unlock()
}

func TestTimeoutMutexUnlockUnlocked(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Unlock of an unlocked mutex should panic")
		}
	}()
	NewTimeoutMutex().Unlock()
}
