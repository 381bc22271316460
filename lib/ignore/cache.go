// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package ignore

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Number of match results to remember per Matcher.
const cacheSize = 8192

type cache struct {
	entries *lru.TwoQueueCache[string, bool]
}

func newCache(size int) *cache {
	entries, err := lru.New2Q[string, bool](size)
	if err != nil {
		// Only happens for a non-positive size.
		panic("bug: " + err.Error())
	}
	return &cache{entries: entries}
}

func (c *cache) get(key string) (bool, bool) {
	return c.entries.Get(key)
}

func (c *cache) set(key string, result bool) {
	c.entries.Add(key, result)
}

func (c *cache) len() int {
	return c.entries.Len()
}
