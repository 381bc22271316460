// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command snapwatch watches directory trees and prints the file and
// directory changes it observes.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/snapwatch/snapwatch/lib/api"
	"github.com/snapwatch/snapwatch/lib/build"
	"github.com/snapwatch/snapwatch/lib/config"
	"github.com/snapwatch/snapwatch/lib/events"
	"github.com/snapwatch/snapwatch/lib/fs"
	"github.com/snapwatch/snapwatch/lib/logger"
	"github.com/snapwatch/snapwatch/lib/observer"
	"github.com/snapwatch/snapwatch/lib/svcutil"
)

var l = logger.DefaultLogger.NewFacility("main", "Main package")

// Lines kept for /rest/system/log.
const recordedLogLines = 250

type CLI struct {
	Config      string           `help:"YAML configuration file" type:"existingfile" placeholder:"PATH" env:"SNAPWATCH_CONFIG"`
	Paths       []string         `arg:"" optional:"" help:"Paths to watch, in addition to the configured ones" type:"path"`
	Recursive   bool             `help:"Watch the given paths recursively" default:"true" negatable:""`
	Ignore      []string         `help:"Ignore pattern for the given paths (repeatable)" short:"i" placeholder:"PATTERN"`
	Delay       time.Duration    `help:"Notification aggregation delay (overrides configuration)" placeholder:"DURATION"`
	LockTimeout time.Duration    `help:"Maximum wait for a busy watch (overrides configuration)" placeholder:"DURATION"`
	Listen      string           `help:"Serve the REST API and Prometheus metrics on this address (overrides configuration)" env:"SNAPWATCH_LISTEN" placeholder:"ADDRESS"`
	JSON        bool             `help:"Print events as JSON lines"`
	Events      string           `help:"Comma separated event types to print" default:"all" placeholder:"TYPES"`
	Version     kong.VersionFlag `help:"Show version and exit"`
}

func main() {
	var params CLI
	kong.Parse(&params,
		kong.Name("snapwatch"),
		kong.Description("Watch directory trees and print the changes made to them."),
		kong.Vars{"version": build.LongVersion},
	)
	os.Exit(params.Run().AsInt())
}

// configuration merges the configuration file with the command line.
func (c *CLI) configuration() (config.Configuration, error) {
	cfg := config.New()
	if c.Config != "" {
		var err error
		if cfg, err = config.Load(c.Config); err != nil {
			return config.Configuration{}, err
		}
	}

	for _, path := range c.Paths {
		err := cfg.AddWatch(config.WatchConfiguration{
			Path:      path,
			Recursive: c.Recursive,
			Ignores:   c.Ignore,
		})
		if err != nil {
			return config.Configuration{}, err
		}
	}
	if len(cfg.Watches) == 0 {
		return config.Configuration{}, errors.New("nothing to watch: give paths or a configuration file")
	}

	if c.Delay > 0 {
		cfg.Options.NotifyDelayMs = int(c.Delay / time.Millisecond)
	}
	if c.LockTimeout > 0 {
		cfg.Options.LockTimeoutS = int((c.LockTimeout + time.Second - 1) / time.Second)
	}
	if c.Listen != "" {
		cfg.Options.ListenAddress = c.Listen
	}
	return cfg, nil
}

func (c *CLI) eventMask() (events.EventType, error) {
	if c.Events == "" || c.Events == "all" {
		return events.AllEvents, nil
	}
	return events.UnmarshalEventType(c.Events)
}

func (c *CLI) Run() svcutil.ExitStatus {
	cfg, err := c.configuration()
	if err != nil {
		l.Warnln("Configuration:", err)
		return svcutil.ExitUsage
	}
	mask, err := c.eventMask()
	if err != nil {
		l.Warnln("Event types:", err)
		return svcutil.ExitUsage
	}

	var recorder logger.Recorder
	if cfg.Options.ListenAddress != "" {
		recorder = logger.NewRecorder(logger.DefaultLogger, logger.LevelInfo, recordedLogLines)
	}

	l.Infoln(build.LongVersion)
	if undo, err := maxprocs.Set(maxprocs.Logger(l.Debugf)); err == nil {
		defer undo()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, mask, c.JSON, recorder); err != nil {
		l.Warnln(err)
		var ferr *svcutil.FatalErr
		if errors.As(err, &ferr) {
			return ferr.Status
		}
		return svcutil.ExitError
	}
	return svcutil.ExitSuccess
}

func run(ctx context.Context, cfg config.Configuration, mask events.EventType, asJSON bool, recorder logger.Recorder) error {
	mainService := suture.New("main", svcutil.Spec(l, logger.LevelInfo))

	sub := events.Default.Subscribe(mask)
	defer events.Default.Unsubscribe(sub)
	mainService.Add(newPrinter(os.Stdout, sub, asJSON))

	obs := observer.New(fs.NewFilesystem(fs.FilesystemTypeBasic, "/"), events.Default, observer.Options{
		LockTimeout:   cfg.Options.LockTimeout(),
		NotifyDelay:   cfg.Options.NotifyDelay(),
		MaxNotifyDirs: cfg.Options.MaxNotifyDirs,
	})
	mainService.Add(obs)

	if addr := cfg.Options.ListenAddress; addr != "" {
		mainService.Add(api.New(addr, obs, recorder))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errC := mainService.ServeBackground(ctx)

	for _, w := range cfg.Watches {
		if _, err := obs.Schedule(w.Path, w.Recursive, w.Ignores); err != nil {
			cancel()
			<-errC
			return svcutil.AsFatalErr(err, svcutil.ExitUsage)
		}
	}

	err := <-errC
	if errors.Is(err, context.Canceled) {
		l.Infoln("Exiting")
		return nil
	}
	return err
}
