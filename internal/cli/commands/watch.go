package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce groups the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// watch re-analyzes captures when they change until ctx is done.
func (a *analyzer) watch(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	targets, err := watchTargets(watcher, paths)
	if err != nil {
		return err
	}

	r := a.cmdCtx.Renderer
	r.Muted(fmt.Sprintf("Watching %d capture(s) for changes. Press Ctrl+C to stop.", len(targets)))

	return watchLoop(ctx, watcher, targets, watchDebounce, a.cmdCtx.Logger, func(changed []string) {
		results, err := a.analyzeAll(ctx, changed, len(changed))
		if err != nil {
			r.Error(err.Error())
			return
		}
		if err := a.render(results); err != nil {
			r.Error(err.Error())
			return
		}
		if err := a.record(ctx, results); err != nil {
			r.Error(err.Error())
		}
	})
}

// watchTargets adds the directory of every path to watcher and maps the
// absolute path of each capture to the path given on the command line.
// Directories are watched so that editors replacing the file are seen.
func watchTargets(watcher *fsnotify.Watcher, paths []string) (map[string]string, error) {
	targets := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		targets[abs] = p
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return targets, nil
}

// watchLoop calls onChange with the changed captures, in sorted order, once
// events settle for delay. It returns when ctx is done or the watcher closes.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]string, delay time.Duration, logger *slog.Logger, onChange func([]string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path, ok := targets[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			logger.Debug("capture changed", "path", path, "op", event.Op.String())
			pending[path] = true
			timer.Reset(delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			onChange(changed)
		}
	}
}
