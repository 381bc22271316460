// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"errors"

	"github.com/snapwatch/snapwatch/lib/snapshot"
)

// repair completes both sides of a scoped diff that found directories
// created, deleted or moved. A scoped scan only sees such a directory, not
// what is below it, so the old side gets the full previous content of each
// deleted or moved-away directory and the new side a full scan of each
// created or moved-to directory. Diffing the repaired sides again gives
// the complete set of changes.
//
// A directory that disappears again before it can be scanned is taken out
// of the new side, so it ends up reported as deleted (if it existed
// before) or not at all.
func (e *Emitter) repair(d snapshot.DiffResult, previousPartial, newPartial *snapshot.Snapshot) error {
	var errs []error

	for _, dir := range d.DirsDeleted {
		previousPartial.Add(e.running.Subset(dir, true))
	}
	for _, mv := range d.DirsMoved {
		previousPartial.Add(e.running.Subset(mv.From, true))
		errs = e.rebuild(mv.To, newPartial, errs)
	}
	for _, dir := range d.DirsCreated {
		errs = e.rebuild(dir, newPartial, errs)
	}

	return errors.Join(errs...)
}

func (e *Emitter) rebuild(dir string, into *snapshot.Snapshot, errs []error) []error {
	fresh, err := e.scanner.Build(dir, true)
	if vanished(err, dir) {
		l.Debugln(e, dir, "vanished during repair")
		into.Remove(into.Subset(dir, true))
		return errs
	}
	into.Add(fresh)
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}
