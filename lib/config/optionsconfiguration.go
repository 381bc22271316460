// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"net"
	"time"
)

type OptionsConfiguration struct {
	NotifyDelayMs int    `json:"notifyDelayMs" default:"500"`
	MaxNotifyDirs int    `json:"maxNotifyDirs" default:"128"`
	LockTimeoutS  int    `json:"lockTimeoutS" default:"30"`
	ListenAddress string `json:"listenAddress,omitempty"`
}

func (o OptionsConfiguration) NotifyDelay() time.Duration {
	return time.Duration(o.NotifyDelayMs) * time.Millisecond
}

func (o OptionsConfiguration) LockTimeout() time.Duration {
	return time.Duration(o.LockTimeoutS) * time.Second
}

func (o *OptionsConfiguration) prepare() error {
	for name, v := range map[string]int{
		"notifyDelayMs": o.NotifyDelayMs,
		"maxNotifyDirs": o.MaxNotifyDirs,
		"lockTimeoutS":  o.LockTimeoutS,
	} {
		if v < 0 {
			return fmt.Errorf("option %s: negative value %d", name, v)
		}
	}
	// Explicit zeroes mean the default.
	setDefaults(o)

	if o.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(o.ListenAddress); err != nil {
			return fmt.Errorf("option listenAddress: %w", err)
		}
	}
	return nil
}
