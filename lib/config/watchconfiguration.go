// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"slices"

	"github.com/snapwatch/snapwatch/lib/ignore"
)

type WatchConfiguration struct {
	Path      string   `json:"path"`
	Recursive bool     `json:"recursive"`
	Ignores   []string `json:"ignores,omitempty"`
}

func (w WatchConfiguration) Copy() WatchConfiguration {
	c := w
	c.Ignores = slices.Clone(w.Ignores)
	return c
}

func (w *WatchConfiguration) prepare() error {
	path, err := cleanPath(w.Path)
	if err != nil {
		return err
	}
	w.Path = path
	w.Ignores = uniqueStrings(w.Ignores)
	if _, err := ignore.New(w.Ignores); err != nil {
		return fmt.Errorf("watch %s: %w", w.Path, err)
	}
	return nil
}
