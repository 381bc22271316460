// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package events distributes change, state and error events to
// subscribers filtered by type mask.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snapwatch/snapwatch/lib/sync"
)

type EventType int

const (
	FileDeleted EventType = 1 << iota
	FileModified
	FileCreated
	FileMoved
	DirDeleted
	DirModified
	DirCreated
	DirMoved
	StateChanged
	WatchError

	AllEvents = (1 << iota) - 1
)

// ChangeEvents are the event types reporting a change on disk.
const ChangeEvents = FileDeleted | FileModified | FileCreated | FileMoved |
	DirDeleted | DirModified | DirCreated | DirMoved

var eventTypeNames = map[EventType]string{
	FileDeleted:  "FileDeleted",
	FileModified: "FileModified",
	FileCreated:  "FileCreated",
	FileMoved:    "FileMoved",
	DirDeleted:   "DirDeleted",
	DirModified:  "DirModified",
	DirCreated:   "DirCreated",
	DirMoved:     "DirMoved",
	StateChanged: "StateChanged",
	WatchError:   "WatchError",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(bs []byte) error {
	v, err := UnmarshalEventType(string(bs))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalEventType parses a single event type name or a comma separated
// list of them into a mask.
func UnmarshalEventType(s string) (EventType, error) {
	var mask EventType
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for t, tn := range eventTypeNames {
			if strings.EqualFold(name, tn) {
				mask |= t
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown event type %q", name)
		}
	}
	return mask, nil
}

// ChangeData is the payload of the change event types. Dest is set for
// moves only.
type ChangeData struct {
	Watch string `json:"watch"`
	Path  string `json:"path"`
	Dest  string `json:"dest,omitempty"`
}

// StateChangeData is the payload of StateChanged.
type StateChangeData struct {
	Watch string `json:"watch"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// WatchErrorData is the payload of WatchError.
type WatchErrorData struct {
	Watch string  `json:"watch"`
	Error *string `json:"error"`
	Fatal bool    `json:"fatal"`
}

// BufferSize is the number of undelivered events a subscription holds
// before further events are dropped for it.
const BufferSize = 64

// A Logger fans events out to its subscriptions. The zero value is not
// usable; use NewLogger.
type Logger struct {
	mut    sync.Mutex
	subs   map[*Subscription]struct{}
	lastID int
}

type Event struct {
	// SubscriptionID counts the events seen by one subscription, from 1.
	SubscriptionID int `json:"id"`
	// GlobalID counts every event logged, delivered or not.
	GlobalID int         `json:"globalID"`
	Time     time.Time   `json:"time"`
	Type     EventType   `json:"type"`
	Data     interface{} `json:"data"`
}

type Subscription struct {
	mask   EventType
	events chan Event
	lastID int // guarded by the owning Logger
}

var Default = NewLogger()

var (
	ErrTimeout = errors.New("timeout")
	ErrClosed  = errors.New("closed")
)

func NewLogger() *Logger {
	return &Logger{
		mut:  sync.NewMutex(),
		subs: make(map[*Subscription]struct{}),
	}
}

// Log hands an event to every subscription whose mask includes t. A
// subscription with a full buffer misses the event; Log does not block.
func (l *Logger) Log(t EventType, data interface{}) {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.lastID++
	ev := Event{
		GlobalID: l.lastID,
		Time:     time.Now(),
		Type:     t,
		Data:     data,
	}
	dl.Debugln("log", ev.GlobalID, t, data)

	for s := range l.subs {
		if s.mask&t == 0 {
			continue
		}
		s.lastID++
		ev.SubscriptionID = s.lastID
		select {
		case s.events <- ev:
		default:
			dl.Debugln("subscriber full, dropping", ev.GlobalID)
		}
	}
}

// Subscribe returns a subscription receiving events matching mask from now
// on.
func (l *Logger) Subscribe(mask EventType) *Subscription {
	s := &Subscription{
		mask:   mask,
		events: make(chan Event, BufferSize),
	}
	l.mut.Lock()
	l.subs[s] = struct{}{}
	l.mut.Unlock()
	dl.Debugln("subscribe", mask)
	return s
}

// Unsubscribe detaches s and closes its channel. Unsubscribing twice is a
// no-op.
func (l *Logger) Unsubscribe(s *Subscription) {
	l.mut.Lock()
	defer l.mut.Unlock()
	if _, ok := l.subs[s]; !ok {
		return
	}
	delete(l.subs, s)
	close(s.events)
	dl.Debugln("unsubscribe", s.mask)
}

// Poll waits up to timeout for the next event. It returns ErrTimeout when
// nothing arrived and ErrClosed once the subscription has been cancelled
// and drained.
func (s *Subscription) Poll(timeout time.Duration) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, ErrClosed
		}
		return ev, nil
	case <-timer.C:
		return Event{}, ErrTimeout
	}
}

// C returns the channel events are delivered on. It is closed by
// Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.events
}

func (s *Subscription) Mask() EventType {
	return s.mask
}

// Error renders err for a JSON payload, as null when err is nil.
func Error(err error) *string {
	if err == nil {
		return nil
	}
	str := err.Error()
	return &str
}
