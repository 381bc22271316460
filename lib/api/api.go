// Copyright (C) 2026 The Snapwatch Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package api serves the REST interface for inspecting and changing the
// set of watches, plus Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/calmh/incontainer"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapwatch/snapwatch/lib/build"
	"github.com/snapwatch/snapwatch/lib/logger"
	"github.com/snapwatch/snapwatch/lib/observer"
)

const maxRequestSize = 64 << 10

// Watcher is the part of the observer the API drives.
type Watcher interface {
	Schedule(path string, recursive bool, ignores []string) (observer.WatchID, error)
	Unschedule(id observer.WatchID) error
	Watches() []observer.WatchInfo
}

type Service struct {
	address string
	watcher  Watcher
	recorder logger.Recorder // may be nil
	started  chan string     // set by the tests only
}

func New(address string, watcher Watcher, recorder logger.Recorder) *Service {
	return &Service{
		address:  address,
		watcher:  watcher,
		recorder: recorder,
	}
}

func (s *Service) String() string {
	return fmt.Sprintf("api.Service@%p", s)
}

func (s *Service) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		l.Warnln("Starting API:", err)
		return err
	}
	defer listener.Close()

	srv := http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// The things we care about we log ourselves from the handlers.
		ErrorLog: log.New(io.Discard, "", 0),
	}

	l.Infoln("API listening on", listener.Addr())
	if s.started != nil {
		select {
		case <-ctx.Done():
		case s.started <- listener.Addr().String():
		}
	}

	serveError := make(chan error, 1)
	go func() {
		select {
		case serveError <- srv.Serve(listener):
		case <-ctx.Done():
		}
	}()

	select {
	case <-ctx.Done():
		l.Debugln("shutting down (stop)")
	case err = <-serveError:
		l.Warnln("API:", err, "(restarting)")
	}

	timeout, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(timeout); errors.Is(err, timeout.Err()) {
		srv.Close()
	}
	return err
}

func (s *Service) handler() http.Handler {
	restMux := httprouter.New()

	restMux.HandlerFunc(http.MethodGet, "/rest/noauth/health", getHealth)
	restMux.HandlerFunc(http.MethodGet, "/rest/system/ping", restPing)
	restMux.HandlerFunc(http.MethodPost, "/rest/system/ping", restPing)
	restMux.HandlerFunc(http.MethodGet, "/rest/system/version", getSystemVersion)
	restMux.HandlerFunc(http.MethodGet, "/rest/system/debug", getSystemDebug)
	restMux.HandlerFunc(http.MethodPost, "/rest/system/debug", postSystemDebug) // [enable] [disable]
	restMux.HandlerFunc(http.MethodGet, "/rest/system/log", s.getSystemLog)      // [since]

	restMux.HandlerFunc(http.MethodGet, "/rest/watches", s.getWatches)
	restMux.HandlerFunc(http.MethodPost, "/rest/watches", s.postWatch) // <body>
	restMux.Handle(http.MethodDelete, "/rest/watches/:id", s.deleteWatch)

	mux := http.NewServeMux()
	mux.Handle("/rest/", noCacheMiddleware(metricsMiddleware(restMux)))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type watchRequest struct {
	Path      string   `json:"path"`
	Recursive bool     `json:"recursive"`
	Ignores   []string `json:"ignores"`
}

func (s *Service) getWatches(w http.ResponseWriter, _ *http.Request) {
	watches := s.watcher.Watches()
	if watches == nil {
		watches = []observer.WatchInfo{}
	}
	sendJSON(w, watches)
}

func (s *Service) postWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	id, err := s.watcher.Schedule(req.Path, req.Recursive, req.Ignores)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSON(w, map[string]observer.WatchID{"id": id})
}

func (s *Service) deleteWatch(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	err := s.watcher.Unschedule(observer.WatchID(p.ByName("id")))
	switch {
	case errors.Is(err, observer.ErrNoSuchWatch):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func getHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, map[string]string{"status": "OK"})
}

func restPing(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, map[string]string{"ping": "pong"})
}

type versionInfo struct {
	Version     string    `json:"version"`
	LongVersion string    `json:"longVersion"`
	OS          string    `json:"os"`
	Arch        string    `json:"arch"`
	IsBeta      bool      `json:"isBeta"`
	IsRelease   bool      `json:"isRelease"`
	Date        time.Time `json:"date"`
	Container   bool      `json:"container"`
}

func getSystemVersion(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, versionInfo{
		Version:     build.Version,
		LongVersion: build.LongVersion,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		IsBeta:      build.IsBeta,
		IsRelease:   build.IsRelease,
		Date:        build.Date,
		Container:   incontainer.Detect(),
	})
}

// getSystemDebug lists the known facilities and the ones being debugged.
func getSystemDebug(w http.ResponseWriter, _ *http.Request) {
	facilities := l.Facilities()
	var enabled []string
	for name := range facilities {
		if l.ShouldDebug(name) {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	if enabled == nil {
		enabled = []string{}
	}
	sendJSON(w, map[string]interface{}{
		"facilities": facilities,
		"enabled":    enabled,
	})
}

// postSystemDebug takes comma separated facility lists in the enable and
// disable parameters.
func postSystemDebug(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	toggleDebug(q.Get("enable"), true)
	toggleDebug(q.Get("disable"), false)
	w.WriteHeader(http.StatusNoContent)
}

func toggleDebug(list string, enabled bool) {
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || l.ShouldDebug(name) == enabled {
			continue
		}
		l.SetDebug(name, enabled)
		l.Infof("Debug output for %q set to %v", name, enabled)
	}
}

func (s *Service) getSystemLog(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		var err error
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	lines := []logger.Line{}
	if s.recorder != nil {
		if rec := s.recorder.Since(since); rec != nil {
			lines = rec
		}
	}
	sendJSON(w, map[string][]logger.Line{"messages": lines})
}

func sendJSON(w http.ResponseWriter, jsonObject interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	bs, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		bs, _ = json.Marshal(map[string]string{"error": err.Error()})
		http.Error(w, string(bs), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "%s\n", bs)
}

func noCacheMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=0, no-cache, no-store")
		w.Header().Set("Expires", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Pragma", "no-cache")
		h.ServeHTTP(w, r)
	})
}

func metricsMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rw, r)
		metricRequests.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
		metricRequestSeconds.WithLabelValues(r.Method).Observe(time.Since(t0).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
