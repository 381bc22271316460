// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package svcutil holds the conventions shared by all suture services:
// supervisor specs, errors controlling restarts and process exit statuses.
package svcutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/snapwatch/snapwatch/lib/logger"
)

// ServiceTimeout is how long a supervisor waits for a service to stop.
const ServiceTimeout = 10 * time.Second

type ExitStatus int

const (
	ExitSuccess ExitStatus = 0
	ExitError   ExitStatus = 1
	ExitUsage   ExitStatus = 2
)

func (s ExitStatus) AsInt() int {
	return int(s)
}

func (s ExitStatus) String() string {
	switch s {
	case ExitSuccess:
		return "success"
	case ExitError:
		return "error"
	case ExitUsage:
		return "usage error"
	default:
		return fmt.Sprintf("exit status %d", int(s))
	}
}

// A FatalErr takes down the whole supervisor tree. Status is what the
// process should exit with.
type FatalErr struct {
	Err    error
	Status ExitStatus
}

// AsFatalErr returns err as a FatalErr with the given status, unless it
// already is one.
func AsFatalErr(err error, status ExitStatus) *FatalErr {
	var ferr *FatalErr
	if errors.As(err, &ferr) {
		return ferr
	}
	return &FatalErr{Err: err, Status: status}
}

func (e *FatalErr) Error() string {
	return fmt.Sprintf("%v (%v)", e.Err, e.Status)
}

func (e *FatalErr) Unwrap() error {
	return e.Err
}

func (*FatalErr) Is(target error) bool {
	return target == suture.ErrTerminateSupervisorTree
}

// NoRestartErr marks err, which may be nil, as ending the service for good.
func NoRestartErr(err error) error {
	if err == nil {
		return suture.ErrDoNotRestart
	}
	return noRestartErr{err}
}

type noRestartErr struct {
	error
}

func (e noRestartErr) Unwrap() error {
	return e.error
}

func (noRestartErr) Is(target error) bool {
	return target == suture.ErrDoNotRestart
}

// Spec returns a supervisor spec logging supervision events on l. Routine
// events are logged at level, stop timeouts and panics always as warnings.
func Spec(l logger.Logger, level logger.LogLevel) suture.Spec {
	return suture.Spec{
		EventHook: func(e suture.Event) {
			switch e.(type) {
			case suture.EventStopTimeout, suture.EventServicePanic:
				l.Warnln(e)
			default:
				logAt(l, level, e)
			}
		},
		Timeout:           ServiceTimeout,
		PassThroughPanics: true,
	}
}

func logAt(l logger.Logger, level logger.LogLevel, v interface{}) {
	switch level {
	case logger.LevelDebug:
		l.Debugln(v)
	case logger.LevelVerbose:
		l.Verboseln(v)
	case logger.LevelInfo:
		l.Infoln(v)
	default:
		l.Warnln(v)
	}
}
