// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ignore matches absolute paths against glob ignore patterns.
package ignore

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// A rule is one compiled pattern line.
type rule struct {
	expr     string // normalized, without prefixes
	exclude  bool   // "!": a match means not ignored
	caseless bool   // "(?i)": matched against the lowercased name
	self     glob.Glob
	below    glob.Glob // everything under a match of self
}

func (r rule) String() string {
	var prefix string
	if r.exclude {
		prefix = "!"
	}
	if r.caseless {
		prefix += "(?i)"
	}
	return prefix + r.expr
}

func (r rule) matches(name string) bool {
	return r.self.Match(name) || r.below.Match(name)
}

// A Matcher is immutable once created and safe for concurrent use.
type Matcher struct {
	lines   []string
	rules   []rule
	matches *cache
	hash    string
}

// New compiles the given patterns. Patterns are matched against slash
// separated absolute paths, in order; the first matching pattern decides.
// A pattern starting with "/" is anchored at the filesystem root, any other
// pattern matches at any depth. A leading "!" makes a pattern an exception
// and a leading "(?i)" makes it case insensitive. Everything below a
// matched directory is matched too.
func New(lines []string) (*Matcher, error) {
	m := &Matcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		r, err := compileRule(filepath.ToSlash(line))
		if err != nil {
			return nil, err
		}
		m.lines = append(m.lines, line)
		m.rules = append(m.rules, r)
	}
	m.hash = hashRules(m.rules)
	if len(m.rules) > 0 {
		m.matches = newCache(cacheSize)
	}
	return m, nil
}

func compileRule(line string) (rule, error) {
	var r rule
	rest := line
	if after, ok := strings.CutPrefix(rest, "!"); ok {
		r.exclude, rest = true, after
	}
	if after, ok := strings.CutPrefix(rest, "(?i)"); ok {
		r.caseless, rest = true, strings.ToLower(after)
	}
	r.expr = rest

	expr := strings.TrimSuffix(rest, "/")
	if expr == "" {
		return rule{}, fmt.Errorf("invalid pattern %q", line)
	}
	if !strings.HasPrefix(expr, "/") && !strings.HasPrefix(expr, "**/") {
		expr = "**/" + expr
	}

	var err error
	if r.self, err = glob.Compile(expr, '/'); err != nil {
		return rule{}, fmt.Errorf("invalid pattern %q: %w", line, err)
	}
	if r.below, err = glob.Compile(expr+"/**", '/'); err != nil {
		return rule{}, fmt.Errorf("invalid pattern %q: %w", line, err)
	}
	return r, nil
}

// Match returns true if name is ignored. A nil Matcher ignores nothing.
func (m *Matcher) Match(name string) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	if res, ok := m.matches.get(name); ok {
		return res
	}
	res := m.evaluate(filepath.ToSlash(name))
	m.matches.set(name, res)
	return res
}

func (m *Matcher) evaluate(name string) bool {
	lower := ""
	for _, r := range m.rules {
		candidate := name
		if r.caseless {
			if lower == "" {
				lower = strings.ToLower(name)
			}
			candidate = lower
		}
		if r.matches(candidate) {
			return !r.exclude
		}
	}
	return false
}

// Lines returns the patterns as given to New, without blank lines and
// comments.
func (m *Matcher) Lines() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.lines...)
}

// Patterns returns the compiled patterns in normalized form.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	res := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		res = append(res, r.String())
	}
	return res
}

// Hash fingerprints the normalized patterns; equal pattern lists hash
// equally.
func (m *Matcher) Hash() string {
	if m == nil {
		return ""
	}
	return m.hash
}

func hashRules(rules []rule) string {
	h := md5.New()
	for _, r := range rules {
		fmt.Fprintln(h, r.String())
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
