// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package observer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	stdsync "sync"
	"testing"
	"time"

	"github.com/d4l3k/messagediff"

	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/sync"
	"github.com/snapwatch/snapwatch/lib/watch"
)

type chanSource struct {
	batches chan []watch.Notification
	errs    chan error
}

func (s *chanSource) Batches(_ context.Context) (<-chan []watch.Notification, <-chan error, error) {
	return s.batches, s.errs, nil
}

// sources hands out one chanSource per scheduled root.
type sources struct {
	mut  sync.Mutex
	byID map[string]*chanSource
}

func newSources() *sources {
	return &sources{
		mut:  sync.NewMutex(),
		byID: make(map[string]*chanSource),
	}
}

func (s *sources) get(root string) *chanSource {
	s.mut.Lock()
	defer s.mut.Unlock()
	src, ok := s.byID[root]
	if !ok {
		src = &chanSource{
			batches: make(chan []watch.Notification),
			errs:    make(chan error),
		}
		s.byID[root] = src
	}
	return src
}

func (s *sources) sourceFunc(root string, _ bool, _ fs.Matcher) watch.Source {
	return s.get(root)
}

func newTestObserver(t *testing.T, dirs ...string) (*Observer, *fs.FakeFilesystem, *events.Logger, *sources) {
	t.Helper()
	ffs := fs.NewFakeFilesystem(t.Name())
	for _, dir := range dirs {
		if err := ffs.MkdirAll(dir); err != nil {
			t.Fatal(err)
		}
	}
	evLogger := events.NewLogger()
	srcs := newSources()
	o := New(ffs, evLogger, Options{SourceFunc: srcs.sourceFunc})
	return o, ffs, evLogger, srcs
}

func poll(t *testing.T, sub *events.Subscription) events.Event {
	t.Helper()
	ev, err := sub.Poll(10 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestScheduleDeduplicates(t *testing.T) {
	o, _, _, _ := newTestObserver(t, "/w")

	id1, err := o.Schedule("/w", true, []string{"*.tmp"})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := o.Schedule("/w/", true, []string{"*.tmp"})
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("Scheduling the same watch twice gave %v and %v", id1, id2)
	}

	id3, err := o.Schedule("/w", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id3 == id1 {
		t.Error("A non recursive watch should be distinct from the recursive one")
	}

	if _, err := o.Schedule("/w", true, []string{"*.bak"}); !errors.Is(err, ErrConflictingWatch) {
		t.Error("Expected ErrConflictingWatch, got", err)
	}
	if _, err := o.Schedule("/w", true, []string{"!"}); err == nil {
		t.Error("Expected an error for a bad ignore pattern")
	}
}

func TestScheduleRelativePath(t *testing.T) {
	o, _, _, _ := newTestObserver(t)

	id, err := o.Schedule("rel", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	ws := o.Watches()
	if len(ws) != 1 || ws[0].ID != id {
		t.Fatalf("Unexpected watches %v", ws)
	}
	if !filepath.IsAbs(ws[0].Path) {
		t.Errorf("Watched path %q is not absolute", ws[0].Path)
	}
}

func TestScheduleNormalizesUnicode(t *testing.T) {
	o, _, _, _ := newTestObserver(t, "/w/caf\u00e9")

	id1, err := o.Schedule("/w/cafe\u0301", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := o.Schedule("/w/caf\u00e9", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("Decomposed and composed forms gave %v and %v", id1, id2)
	}
	if ws := o.Watches(); len(ws) != 1 || ws[0].Path != "/w/caf\u00e9" {
		t.Errorf("Unexpected watches %v", ws)
	}
}

func TestScheduleResolvesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	if err := os.MkdirAll(filepath.Join(target, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "sub", "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	srcs := newSources()
	o := New(fs.NewBasicFilesystem(), events.NewLogger(), Options{SourceFunc: srcs.sourceFunc})

	id, err := o.Schedule(link, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ws := o.Watches(); len(ws) != 1 || ws[0].Path != target {
		t.Fatalf("Expected the watch on %s, got %v", target, ws)
	}
	if id2, err := o.Schedule(target, true, nil); err != nil || id2 != id {
		t.Errorf("Scheduling the link target gave %v, %v; expected %v", id2, err, id)
	}

	e, err := o.Emitter(id)
	if err != nil {
		t.Fatal(err)
	}
	if e.Root() != target {
		t.Errorf("Emitter rooted at %s, expected %s", e.Root(), target)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	snap, err := e.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{target, filepath.Join(target, "sub"), filepath.Join(target, "sub", "f")}
	if diff, equal := messagediff.PrettyDiff(expected, snap.Paths()); !equal {
		t.Errorf("Unexpected snapshot of the link target. Diff:\n%s", diff)
	}
	if err := o.Unschedule(id); err != nil {
		t.Fatal(err)
	}
}

func TestWatchesSorted(t *testing.T) {
	o, _, _, _ := newTestObserver(t, "/a", "/b", "/c")

	for _, p := range []string{"/c", "/a", "/b"} {
		if _, err := o.Schedule(p, true, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := o.Schedule("/a", false, []string{".git"}); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, w := range o.Watches() {
		mode := "r"
		if !w.Recursive {
			mode = "n"
		}
		got = append(got, mode+w.Path)
		if w.State != watch.StateIdle {
			t.Errorf("Watch %s in state %v before serving", w.Path, w.State)
		}
	}
	expected := []string{"n/a", "r/a", "r/b", "r/c"}
	if diff, equal := messagediff.PrettyDiff(expected, got); !equal {
		t.Errorf("Unexpected watch order.\n%s", diff)
	}
	if ign := o.Watches()[0].Ignores; len(ign) != 1 || ign[0] != ".git" {
		t.Errorf("Unexpected ignores %v", ign)
	}
}

func TestUnscheduleUnknown(t *testing.T) {
	o, _, _, _ := newTestObserver(t)
	if err := o.Unschedule("nope"); !errors.Is(err, ErrNoSuchWatch) {
		t.Error("Expected ErrNoSuchWatch, got", err)
	}
	if _, err := o.Emitter("nope"); !errors.Is(err, ErrNoSuchWatch) {
		t.Error("Expected ErrNoSuchWatch, got", err)
	}
}

func TestUnscheduleNotServed(t *testing.T) {
	o, _, _, _ := newTestObserver(t, "/w")

	id, err := o.Schedule("/w", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := o.Emitter(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Unschedule(id); err != nil {
		t.Fatal(err)
	}
	if e.State() != watch.StateStopped {
		t.Errorf("Unexpected state %v", e.State())
	}
	if len(o.Watches()) != 0 {
		t.Error("Watch still listed after unscheduling")
	}
	if err := o.Unschedule(id); !errors.Is(err, ErrNoSuchWatch) {
		t.Error("Expected ErrNoSuchWatch, got", err)
	}

	// The path can be scheduled again, under a new ID.
	id2, err := o.Schedule("/w", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id2 == id {
		t.Error("ID reused")
	}
}

// gatedSink blocks the first state change until released.
type gatedSink struct {
	entered chan struct{}
	release chan struct{}
	once    stdsync.Once
}

func (s *gatedSink) Log(t events.EventType, _ interface{}) {
	if t != events.StateChanged {
		return
	}
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
}

func TestUnscheduleKeepsWatchOnStopFailure(t *testing.T) {
	ffs := fs.NewFakeFilesystem(t.Name())
	if err := ffs.MkdirAll("/w"); err != nil {
		t.Fatal(err)
	}
	sink := &gatedSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := New(ffs, sink, Options{LockTimeout: 20 * time.Millisecond, SourceFunc: newSources().sourceFunc})

	id, err := o.Schedule("/w", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := o.Emitter(id)
	if err != nil {
		t.Fatal(err)
	}

	// Start holds the watch lock while the sink is blocked.
	started := make(chan error, 1)
	go func() {
		started <- e.Start()
	}()
	<-sink.entered

	if err := o.Unschedule(id); !errors.Is(err, watch.ErrLockTimeout) {
		t.Fatalf("Expected a lock timeout, got %v", err)
	}
	if ws := o.Watches(); len(ws) != 1 || ws[0].ID != id {
		t.Fatalf("Watch should still be listed, got %v", ws)
	}
	if again, err := o.Schedule("/w", true, nil); err != nil || again != id {
		t.Errorf("Rescheduling gave %v, %v; expected %v", again, err, id)
	}

	close(sink.release)
	if err := <-started; err != nil {
		t.Fatal(err)
	}

	if err := o.Unschedule(id); err != nil {
		t.Fatal(err)
	}
	if e.State() != watch.StateStopped {
		t.Errorf("Unexpected state %v", e.State())
	}
	if len(o.Watches()) != 0 {
		t.Error("Watch still listed after unscheduling")
	}
}

func TestObserverServes(t *testing.T) {
	o, ffs, evLogger, srcs := newTestObserver(t, "/w/sub")
	sub := evLogger.Subscribe(events.ChangeEvents | events.StateChanged)
	defer evLogger.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.ServeBackground(ctx)

	id, err := o.Schedule("/w", true, []string{"*.tmp"})
	if err != nil {
		t.Fatal(err)
	}

	ev := poll(t, sub)
	if ev.Type != events.StateChanged || ev.Data.(events.StateChangeData).To != watch.StateWatching.String() {
		t.Fatalf("Unexpected event %v %v", ev.Type, ev.Data)
	}

	if err := ffs.WriteFile("/w/sub/x.tmp", 1); err != nil {
		t.Fatal(err)
	}
	if err := ffs.WriteFile("/w/sub/f", 1); err != nil {
		t.Fatal(err)
	}
	srcs.get("/w").batches <- []watch.Notification{{Path: "/w/sub"}}

	ev = poll(t, sub)
	if ev.Type != events.FileCreated || ev.Data.(events.ChangeData).Path != "/w/sub/f" {
		t.Errorf("Unexpected event %v %v", ev.Type, ev.Data)
	}

	if err := o.Unschedule(id); err != nil {
		t.Fatal(err)
	}
	ev = poll(t, sub)
	if ev.Type != events.StateChanged || ev.Data.(events.StateChangeData).To != watch.StateStopped.String() {
		t.Errorf("Unexpected event %v %v", ev.Type, ev.Data)
	}
}
