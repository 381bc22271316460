// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/snapwatch/snapwatch/lib/events"
)

// The printer writes every event of its subscription to out, one per line.
type printer struct {
	out    io.Writer
	sub    *events.Subscription
	asJSON bool
}

func newPrinter(out io.Writer, sub *events.Subscription, asJSON bool) *printer {
	return &printer{
		out:    out,
		sub:    sub,
		asJSON: asJSON,
	}
}

func (p *printer) String() string {
	return fmt.Sprintf("printer@%p", p)
}

func (p *printer) Serve(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-p.sub.C():
			if !ok {
				return suture.ErrDoNotRestart
			}
			if err := p.print(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *printer) print(ev events.Event) error {
	if p.asJSON {
		bs, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.out, "%s\n", bs)
		return err
	}
	_, err := fmt.Fprintln(p.out, formatEvent(ev))
	return err
}

func formatEvent(ev events.Event) string {
	ts := ev.Time.Format(time.RFC3339)
	switch data := ev.Data.(type) {
	case events.ChangeData:
		if data.Dest != "" {
			return fmt.Sprintf("%s %v %s -> %s", ts, ev.Type, data.Path, data.Dest)
		}
		return fmt.Sprintf("%s %v %s", ts, ev.Type, data.Path)
	case events.StateChangeData:
		return fmt.Sprintf("%s %v %s %s -> %s", ts, ev.Type, data.Watch, data.From, data.To)
	case events.WatchErrorData:
		msg := "<nil>"
		if data.Error != nil {
			msg = *data.Error
		}
		if data.Fatal {
			return fmt.Sprintf("%s %v %s (fatal): %s", ts, ev.Type, data.Watch, msg)
		}
		return fmt.Sprintf("%s %v %s: %s", ts, ev.Type, data.Watch, msg)
	default:
		return fmt.Sprintf("%s %v %v", ts, ev.Type, ev.Data)
	}
}
