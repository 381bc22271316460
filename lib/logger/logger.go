// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package logger implements leveled logging split into named facilities.
// Debug output is off by default and enabled per facility, either at
// runtime or through the SNAPWATCH_TRACE environment variable.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// This package uses stdlib sync as lib/sync logs through it.

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelVerbose
	LevelInfo
	LevelWarn
	NumLevels
)

var levelNames = [NumLevels]string{
	LevelDebug:   "DEBUG",
	LevelVerbose: "VERBOSE",
	LevelInfo:    "INFO",
	LevelWarn:    "WARNING",
}

func (l LogLevel) String() string {
	if l < 0 || l >= NumLevels {
		return "UNKNOWN"
	}
	return levelNames[l]
}

const (
	DefaultFlags = log.Ltime | log.Ldate
	DebugFlags   = log.Ltime | log.Ldate | log.Lmicroseconds | log.Lshortfile
)

// TraceEnv names the environment variable holding the comma separated list
// of facilities to debug, or "all".
const TraceEnv = "SNAPWATCH_TRACE"

// A MessageHandler is called with the log level and message text.
type MessageHandler func(l LogLevel, msg string)

type Logger interface {
	AddHandler(level LogLevel, h MessageHandler)
	SetFlags(flag int)
	SetPrefix(prefix string)
	Debugln(vals ...interface{})
	Debugf(format string, vals ...interface{})
	Verboseln(vals ...interface{})
	Verbosef(format string, vals ...interface{})
	Infoln(vals ...interface{})
	Infof(format string, vals ...interface{})
	Warnln(vals ...interface{})
	Warnf(format string, vals ...interface{})
	ShouldDebug(facility string) bool
	SetDebug(facility string, enabled bool)
	Facilities() map[string]string
	NewFacility(facility, description string) Logger
}

type handlerEntry struct {
	minLevel LogLevel
	fn       MessageHandler
}

type logger struct {
	mut        sync.Mutex
	out        *log.Logger
	handlers   []handlerEntry
	facilities map[string]string // name => description
	debugging  map[string]bool
	traceAll   bool
	traced     map[string]bool
}

// DefaultLogger logs to standard output, or nowhere if LOGGER_DISCARD is
// set.
var DefaultLogger = New()

func New() Logger {
	if os.Getenv("LOGGER_DISCARD") != "" {
		return newLogger(io.Discard)
	}
	return newLogger(os.Stdout)
}

func newLogger(w io.Writer) *logger {
	l := &logger{
		out:        log.New(w, "", DefaultFlags),
		facilities: make(map[string]string),
		debugging:  make(map[string]bool),
		traced:     make(map[string]bool),
	}
	for _, name := range strings.FieldsFunc(os.Getenv(TraceEnv), isTraceSep) {
		if name == "all" {
			l.traceAll = true
		}
		l.traced[name] = true
	}
	return l
}

func isTraceSep(r rune) bool {
	return r == ',' || r == ';' || r == ' '
}

// AddHandler registers h for messages at level or above.
func (l *logger) AddHandler(level LogLevel, h MessageHandler) {
	l.mut.Lock()
	l.handlers = append(l.handlers, handlerEntry{minLevel: level, fn: h})
	l.mut.Unlock()
}

func (l *logger) SetFlags(flag int) {
	l.out.SetFlags(flag)
}

func (l *logger) SetPrefix(prefix string) {
	l.out.SetPrefix(prefix)
}

// emit writes one line. calldepth is counted from the caller of the
// public logging method.
func (l *logger) emit(calldepth int, level LogLevel, msg string) {
	msg = strings.TrimSpace(msg)
	l.mut.Lock()
	defer l.mut.Unlock()
	_ = l.out.Output(calldepth+2, level.String()+": "+msg)
	for _, h := range l.handlers {
		if level >= h.minLevel {
			h.fn(level, msg)
		}
	}
}

func (l *logger) Debugln(vals ...interface{}) {
	l.emit(1, LevelDebug, fmt.Sprintln(vals...))
}

func (l *logger) Debugf(format string, vals ...interface{}) {
	l.emit(1, LevelDebug, fmt.Sprintf(format, vals...))
}

func (l *logger) Verboseln(vals ...interface{}) {
	l.emit(1, LevelVerbose, fmt.Sprintln(vals...))
}

func (l *logger) Verbosef(format string, vals ...interface{}) {
	l.emit(1, LevelVerbose, fmt.Sprintf(format, vals...))
}

func (l *logger) Infoln(vals ...interface{}) {
	l.emit(1, LevelInfo, fmt.Sprintln(vals...))
}

func (l *logger) Infof(format string, vals ...interface{}) {
	l.emit(1, LevelInfo, fmt.Sprintf(format, vals...))
}

func (l *logger) Warnln(vals ...interface{}) {
	l.emit(1, LevelWarn, fmt.Sprintln(vals...))
}

func (l *logger) Warnf(format string, vals ...interface{}) {
	l.emit(1, LevelWarn, fmt.Sprintf(format, vals...))
}

func (l *logger) ShouldDebug(facility string) bool {
	l.mut.Lock()
	defer l.mut.Unlock()
	return l.debugging[facility]
}

// SetDebug turns debug output for a facility on or off. Source locations
// are added to all lines while any facility is being debugged.
func (l *logger) SetDebug(facility string, enabled bool) {
	l.mut.Lock()
	defer l.mut.Unlock()
	if enabled {
		l.debugging[facility] = true
	} else {
		delete(l.debugging, facility)
	}
	if len(l.debugging) > 0 {
		l.out.SetFlags(DebugFlags)
	} else {
		l.out.SetFlags(DefaultFlags)
	}
}

func (l *logger) Facilities() map[string]string {
	l.mut.Lock()
	defer l.mut.Unlock()
	res := make(map[string]string, len(l.facilities))
	for name, descr := range l.facilities {
		res[name] = descr
	}
	return res
}

// NewFacility returns a logger whose debug output is controlled by the
// given facility name.
func (l *logger) NewFacility(facility, description string) Logger {
	l.mut.Lock()
	l.facilities[facility] = description
	traced := l.traceAll || l.traced[facility]
	l.mut.Unlock()

	if traced {
		l.SetDebug(facility, true)
	}
	return &facilityLogger{logger: l, facility: facility}
}

// A facilityLogger drops debug lines unless its facility is being
// debugged, and tags the ones it prints with the facility name.
type facilityLogger struct {
	*logger
	facility string
}

func (l *facilityLogger) Debugln(vals ...interface{}) {
	if l.ShouldDebug(l.facility) {
		l.emit(1, LevelDebug, l.facility+": "+fmt.Sprintln(vals...))
	}
}

func (l *facilityLogger) Debugf(format string, vals ...interface{}) {
	if l.ShouldDebug(l.facility) {
		l.emit(1, LevelDebug, l.facility+": "+fmt.Sprintf(format, vals...))
	}
}

// A Recorder keeps the most recent log lines in memory.
type Recorder interface {
	Since(t time.Time) []Line
	Clear()
}

// A Line is a recorded log entry.
type Line struct {
	When    time.Time `json:"when"`
	Message string    `json:"message"`
	Level   LogLevel  `json:"level"`
}

type recorder struct {
	mut   sync.Mutex
	lines []Line // ring buffer
	next  int
	full  bool
}

// NewRecorder returns a Recorder holding the last size lines logged on l at
// level or above.
func NewRecorder(l Logger, level LogLevel, size int) Recorder {
	r := &recorder{lines: make([]Line, size)}
	l.AddHandler(level, r.record)
	return r
}

// Since returns the recorded lines newer than t, oldest first.
func (r *recorder) Since(t time.Time) []Line {
	r.mut.Lock()
	defer r.mut.Unlock()

	var res []Line
	for _, line := range r.ordered() {
		if line.When.After(t) {
			res = append(res, line)
		}
	}
	return res
}

func (r *recorder) Clear() {
	r.mut.Lock()
	r.next, r.full = 0, false
	r.mut.Unlock()
}

func (r *recorder) ordered() []Line {
	if !r.full {
		return r.lines[:r.next]
	}
	return append(r.lines[r.next:len(r.lines):len(r.lines)], r.lines[:r.next]...)
}

func (r *recorder) record(level LogLevel, msg string) {
	if len(r.lines) == 0 {
		return
	}
	r.mut.Lock()
	r.lines[r.next] = Line{When: time.Now(), Message: msg, Level: level}
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
	r.mut.Unlock()
}
