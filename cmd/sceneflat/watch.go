package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taigrr/sceneflat/pkg/log"
)

// settle is how long the input must stay quiet before it is re-exported.
const settle = 200 * time.Millisecond

// watchInput exports once, then again after every change to the input until
// ctx is done. Exports run on this goroutine, so they never overlap. Failed
// exports are logged and the watch continues.
func watchInput(ctx context.Context, opts options, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them, so watch the
	// directory and filter by name.
	input := filepath.Clean(opts.input)
	if err := watcher.Add(filepath.Dir(input)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(input), err)
	}

	reexport := func() {
		if _, err := exportOnce(opts, logger); err != nil {
			logger.Errorf("Export failed: %v", err)
		}
	}
	reexport()
	logger.Infof("Watching %s", input)

	timer := time.NewTimer(settle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != input || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debugf("change: %s", ev)
			timer.Reset(settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("WARNING: watch error: %v", err)

		case <-timer.C:
			reexport()
		}
	}
}
