// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/svcutil"
)

var errSourceClosed = errors.New("notification source closed")

// Service runs an emitter off a notification source. It is restarted by
// its supervisor after source errors, rescanning the whole tree to catch
// up. Fatal emitter errors stop it for good.
type Service struct {
	emitter *Emitter
	source  Source
	sink    Sink
}

func NewService(emitter *Emitter, source Source, sink Sink) *Service {
	return &Service{
		emitter: emitter,
		source:  source,
		sink:    sink,
	}
}

func (s *Service) String() string {
	return fmt.Sprintf("watch.Service@%p for %s", s, s.emitter.Root())
}

func (s *Service) Emitter() *Emitter {
	return s.emitter
}

func (s *Service) Serve(ctx context.Context) error {
	l.Debugln(s, "starting")
	defer l.Debugln(s, "exiting")

	restarted := s.emitter.State() == StateWatching
	if err := s.emitter.Start(); err != nil {
		if IsFatal(err) {
			s.reportError(err, true)
			return svcutil.NoRestartErr(err)
		}
		s.reportError(err, false)
	}

	batches, errChan, err := s.source.Batches(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrWatchNotSupported) {
			s.reportError(err, true)
			return svcutil.NoRestartErr(err)
		}
		s.reportError(err, false)
		return err
	}

	if restarted {
		// Changes may have been missed while the source was down.
		if err := s.reconcile([]Notification{{Path: s.emitter.Root(), Flags: MustScanSubDirs}}); err != nil {
			return err
		}
	}

	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				if ctx.Err() != nil {
					return s.stop()
				}
				return errSourceClosed
			}
			if err := s.reconcile(batch); err != nil {
				return err
			}
		case err := <-errChan:
			l.Infof("Watching %s: %v", s.emitter.Root(), err)
			s.reportError(err, false)
			return err
		case <-ctx.Done():
			return s.stop()
		}
	}
}

// reconcile returns an error only if the service must exit.
func (s *Service) reconcile(batch []Notification) error {
	err := s.emitter.Reconcile(Normalize(s.emitter.Root(), batch))
	switch {
	case err == nil:
		return nil
	case IsFatal(err):
		l.Warnf("Watching %s: %v", s.emitter.Root(), err)
		s.reportError(err, true)
		return svcutil.NoRestartErr(err)
	default:
		l.Infof("Watching %s: %v", s.emitter.Root(), err)
		s.reportError(err, false)
		return nil
	}
}

func (s *Service) stop() error {
	if err := s.emitter.Stop(); err != nil {
		l.Warnf("Watching %s: %v", s.emitter.Root(), err)
		return svcutil.NoRestartErr(err)
	}
	return nil
}

func (s *Service) reportError(err error, fatal bool) {
	s.sink.Log(events.WatchError, events.WatchErrorData{
		Watch: s.emitter.Root(),
		Error: events.Error(err),
		Fatal: fatal,
	})
}
