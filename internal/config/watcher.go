// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/bondchat-tui/internal/diag"
)

// =============================================================================
// FILE WATCHER
// =============================================================================

// debounceDelay coalesces editor save bursts (write + chmod + rename)
// into a single reload.
const debounceDelay = 300 * time.Millisecond

// Watcher reloads the global config when the config file changes on
// disk.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	sink     diag.Sink
	onReload func(*Config)
	stop     chan struct{}
}

// NewWatcher watches the config file at path. onReload, if non-nil, is
// called with each successfully reloaded config after it has been
// installed as the global.
func NewWatcher(path string, sink diag.Sink, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	if sink == nil {
		sink = diag.Nop()
	}
	w := &Watcher{
		fsw:      fsw,
		path:     path,
		sink:     sink,
		onReload: onReload,
		stop:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sink.Logf("config: watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.sink.Logf("config: reload failed, keeping previous: %v", err)
		return
	}
	SetGlobal(cfg)
	w.sink.Logf("config: reloaded from %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
