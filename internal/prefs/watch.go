// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events produced by one atomic write.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes to store files made outside this process.
//
// The directory is watched rather than the file itself: AtomicWriteFile
// replaces the file by rename, which would drop a watch on the old inode.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	handlers map[string]func() // file base name -> callback

	mu      sync.Mutex
	pending map[string]time.Time // file base name -> last change time

	wg sync.WaitGroup
}

// NewWatcher creates a watcher for stores that live in dir.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		handlers: make(map[string]func()),
		pending:  make(map[string]time.Time),
	}, nil
}

// On registers fn to run after store changes. Call before Run.
func (w *Watcher) On(store *Store, fn func()) {
	w.handlers[filepath.Base(store.Path())] = fn
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processPending(ctx)
	}()

	defer func() {
		cancel()
		w.watcher.Close()
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if _, ok := w.handlers[name]; !ok {
				continue
			}
			w.mu.Lock()
			w.pending[name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("PREFS_WATCH_ERROR | error=%v", err)
		}
	}
}

// processPending fires handlers once their file has been quiet for the
// debounce interval.
func (w *Watcher) processPending(ctx context.Context) {
	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for name, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, name)
					delete(w.pending, name)
				}
			}
			w.mu.Unlock()

			for _, name := range ready {
				log.Printf("PREFS_CHANGED | file=%s", name)
				w.handlers[name]()
			}
		}
	}
}
