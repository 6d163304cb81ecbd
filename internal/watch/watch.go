// Package watch re-runs ingestion when the scanner drops new measurement
// tables into a directory.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"porosity/adapters/table"
	"porosity/internal"
)

// DefaultSettle is how long a table must stay unchanged before it is handled.
const DefaultSettle = 2 * time.Second

// Handler processes one settled table file
type Handler func(ctx context.Context, path string) error

// Tables watches dir and calls handle for every measurement table that is
// created or rewritten, once it has been quiet for settle. Handler errors are
// logged and watching continues. It runs until ctx is cancelled.
func Tables(ctx context.Context, dir string, settle time.Duration, handle Handler) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	logger := internal.DefaultLogger.With("Watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("watching %s for measurement tables", dir)

	ready := make(chan string, 16)
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	// scanner exports arrive in several writes; wait for the file to settle
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(settle)
			return
		}
		timers[path] = time.AfterFunc(settle, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !table.IsTableFile(event.Name) || filepath.Base(event.Name)[0] == '.' {
				continue
			}
			logger.Trace("event %s on %s", event.Op, event.Name)
			schedule(event.Name)

		case path := <-ready:
			if err := handle(ctx, path); err != nil {
				logger.Warn("%s: %v", filepath.Base(path), err)
				continue
			}
			logger.Info("%s ingested", filepath.Base(path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error: %v", err)
		}
	}
}
