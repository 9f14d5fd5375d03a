// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tenant

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Reloader is satisfied by *Registry.
type Reloader interface {
	Reload(ctx context.Context) (*Router, error)
}

// Watcher reloads knowledge when CSV files under a directory change.
//
// Description:
//
//	Watches the data directory and its subdirectories present at start.
//	Create, write, remove and rename events on .csv files arm a debounce
//	timer; when it fires, one Reload runs.
//
// Thread Safety: Run must be called once.
type Watcher struct {
	dir      string
	reloader Reloader
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher. A zero debounce uses DefaultDebounce and a
// nil logger uses slog.Default().
func NewWatcher(dir string, reloader Reloader, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, reloader: reloader, debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled.
//
// Outputs:
//
//	error - Non-nil if the watcher could not start. Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge watcher: %w", err)
	}
	defer fw.Close()

	err = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("knowledge watcher: watching %s: %w", w.dir, err)
	}
	w.logger.Info("knowledge watcher started", slog.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("knowledge watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("knowledge file changed",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()),
			)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("knowledge watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			if _, err := w.reloader.Reload(ctx); err != nil {
				w.logger.Warn("knowledge reload after file change failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".csv") {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
