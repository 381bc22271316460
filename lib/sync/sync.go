// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sync provides mutexes that log when held for too long and a mutex
// whose acquisition can be bounded in time.
package sync

import (
	"fmt"
	"path"
	"runtime"
	"sync"
	"time"
)

type Mutex interface {
	Lock()
	Unlock()
}

// A TimeoutMutex is a Mutex that can also be acquired with an upper bound
// on the waiting time.
type TimeoutMutex interface {
	Mutex
	// TryLockTimeout acquires the lock, waiting at most d. It returns false
	// if the lock could not be acquired in time.
	TryLockTimeout(d time.Duration) bool
}

func NewMutex() Mutex {
	if debug {
		return &loggedMutex{}
	}
	return &sync.Mutex{}
}

type holder struct {
	at   string
	time time.Time
}

func (h holder) String() string {
	if h.at == "" {
		return "not held"
	}
	return fmt.Sprintf("at %s for %s", h.at, time.Since(h.time))
}

type loggedMutex struct {
	sync.Mutex
	holder atomicHolder
}

func (m *loggedMutex) Lock() {
	m.Mutex.Lock()
	m.holder.Store(getHolder())
}

func (m *loggedMutex) Unlock() {
	currentHolder := m.holder.Load()
	duration := time.Since(currentHolder.time)
	if duration >= threshold {
		l.Debugf("Mutex held for %v. Locked at %s unlocked at %s", duration, currentHolder.at, getHolder().at)
	}
	m.holder.Store(holder{})
	m.Mutex.Unlock()
}

// NewTimeoutMutex returns an unlocked TimeoutMutex.
func NewTimeoutMutex() TimeoutMutex {
	return &timeoutMutex{
		c: make(chan struct{}, 1),
	}
}

// timeoutMutex is a one slot semaphore. Holding the token is holding the
// lock.
type timeoutMutex struct {
	c      chan struct{}
	holder atomicHolder
}

func (m *timeoutMutex) Lock() {
	m.c <- struct{}{}
	m.locked()
}

func (m *timeoutMutex) TryLockTimeout(d time.Duration) bool {
	select {
	case m.c <- struct{}{}:
		m.locked()
		return true
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m.c <- struct{}{}:
		m.locked()
		return true
	case <-timer.C:
		l.Debugf("Mutex not acquired within %v, held %v", d, m.holder.Load())
		return false
	}
}

func (m *timeoutMutex) Unlock() {
	if debug {
		currentHolder := m.holder.Load()
		if duration := time.Since(currentHolder.time); duration >= threshold {
			l.Debugf("Mutex held for %v. Locked at %s unlocked at %s", duration, currentHolder.at, getHolder().at)
		}
	}
	m.holder.Store(holder{})
	select {
	case <-m.c:
	default:
		panic("bug: unlock of unlocked TimeoutMutex")
	}
}

func (m *timeoutMutex) locked() {
	if debug {
		_, file, line, _ := runtime.Caller(2)
		m.holder.Store(holder{at: fmt.Sprintf("%s:%d", path.Base(file), line), time: time.Now()})
	}
}

type atomicHolder struct {
	mut sync.Mutex
	h   holder
}

func (a *atomicHolder) Load() holder {
	a.mut.Lock()
	defer a.mut.Unlock()
	return a.h
}

func (a *atomicHolder) Store(h holder) {
	a.mut.Lock()
	a.h = h
	a.mut.Unlock()
}

func getHolder() holder {
	_, file, line, _ := runtime.Caller(2)
	return holder{
		at:   fmt.Sprintf("%s:%d", path.Base(file), line),
		time: time.Now(),
	}
}
