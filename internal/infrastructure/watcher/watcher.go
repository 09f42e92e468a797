// Package watcher monitors selection files for changes using fsnotify.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // Selection file edited
	ChangeRemoved                    // Selection file deleted
)

// FileChange represents a detected change to a watched selection file.
type FileChange struct {
	Kind ChangeKind
	File string // Absolute path
}

// Watcher monitors a selection file for changes. Editors replace files
// on save rather than writing in place, so the parent directory is
// watched and events are filtered back down to the target file.
type Watcher struct {
	File    string
	Changes <-chan FileChange // Read-only external channel

	changes chan FileChange // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
	target  string
}

// NewWatcher creates a new watcher for the given selection file.
func NewWatcher(file string) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving watch path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan FileChange, 16)
	w := &Watcher{
		File:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
		target:  filepath.Base(abs),
	}
	return w, nil
}

// Start begins watching the selection file's directory for changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per kind. Editors fire bursts of
	// events per save; only the quiet period after matters.
	const debounce = 100 * time.Millisecond
	pending := make(map[ChangeKind]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				// Drain pending on close.
				for kind := range pending {
					w.changes <- FileChange{Kind: kind, File: w.File}
				}
				return
			}

			if filepath.Base(event.Name) != w.target {
				continue
			}

			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				pending[ChangeModified] = time.Now()
				delete(pending, ChangeRemoved)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				pending[ChangeRemoved] = time.Now()
				delete(pending, ChangeModified)
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			now := time.Now()
			for kind, t := range pending {
				if now.Sub(t) >= debounce {
					w.changes <- FileChange{Kind: kind, File: w.File}
					delete(pending, kind)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Ignore watch errors; they're non-fatal.
		}
	}
}
