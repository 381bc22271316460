// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config implements reading of the snapwatch YAML configuration
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"sigs.k8s.io/yaml"
)

var (
	ErrRelativePath = errors.New("watch path must be absolute")
	ErrEmptyPath    = errors.New("watch path must not be empty")
)

type Configuration struct {
	Watches []WatchConfiguration `json:"watches"`
	Options OptionsConfiguration `json:"options"`
}

// New returns an empty configuration with default options.
func New() Configuration {
	var cfg Configuration
	setDefaults(&cfg.Options)
	return cfg
}

// Load reads and prepares the configuration file at path.
func Load(path string) (Configuration, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, err
	}
	cfg, err := Parse(bs)
	if err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", path, err)
	}
	l.Debugf("Loaded %s: %d watches", path, len(cfg.Watches))
	return cfg, nil
}

// Parse decodes a YAML configuration. Unknown keys are an error.
func Parse(bs []byte) (Configuration, error) {
	cfg := New()
	if err := yaml.UnmarshalStrict(bs, &cfg); err != nil {
		return Configuration{}, err
	}
	if err := cfg.prepare(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func (cfg Configuration) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (cfg Configuration) Copy() Configuration {
	newCfg := cfg
	newCfg.Watches = make([]WatchConfiguration, len(cfg.Watches))
	for i := range cfg.Watches {
		newCfg.Watches[i] = cfg.Watches[i].Copy()
	}
	return newCfg
}

// AddWatch appends a watch and prepares the configuration again. The
// configuration is unchanged on error.
func (cfg *Configuration) AddWatch(w WatchConfiguration) error {
	newCfg := cfg.Copy()
	newCfg.Watches = append(newCfg.Watches, w.Copy())
	if err := newCfg.prepare(); err != nil {
		return err
	}
	*cfg = newCfg
	return nil
}

func (cfg *Configuration) prepare() error {
	if err := cfg.Options.prepare(); err != nil {
		return err
	}

	// Watches of the same path and recursion are merged, keeping the
	// position of the first one.
	seen := make(map[watchKey]int, len(cfg.Watches))
	watches := cfg.Watches[:0]
	for _, w := range cfg.Watches {
		if err := w.prepare(); err != nil {
			return err
		}
		key := watchKey{w.Path, w.Recursive}
		if i, ok := seen[key]; ok {
			l.Debugf("Merging duplicate watch of %s", w.Path)
			watches[i].Ignores = uniqueStrings(append(watches[i].Ignores, w.Ignores...))
			continue
		}
		seen[key] = len(watches)
		watches = append(watches, w)
	}
	cfg.Watches = watches
	return nil
}

type watchKey struct {
	path      string
	recursive bool
}

// setDefaults sets the value of every zero field of the struct pointed to
// by data from its "default" tag.
func setDefaults(data interface{}) {
	s := reflect.ValueOf(data).Elem()
	t := s.Type()

	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		v := t.Field(i).Tag.Get("default")
		if v == "" || !f.IsZero() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(v)
		case reflect.Int:
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				panic(err)
			}
			f.SetInt(i)
		case reflect.Bool:
			f.SetBool(v == "true")
		default:
			panic(f.Type())
		}
	}
}

// uniqueStrings removes duplicates, keeping the first occurrence.
func uniqueStrings(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	us := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		us = append(us, s)
	}
	return us
}

func cleanPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%q: %w", path, ErrRelativePath)
	}
	return filepath.Clean(path), nil
}
