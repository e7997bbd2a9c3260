package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the quiet period after a change before rebuilding.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions controls Watch.
type WatchOptions struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// OnBuild is called after every build, including failed ones.
	OnBuild func(res *Result, err error)
}

// Watch builds once, then rebuilds with a fresh device whenever the network
// description or setup script changes. Build failures are reported through
// OnBuild and do not stop the watch. Returns nil when ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	onBuild := opts.OnBuild
	if onBuild == nil {
		onBuild = func(*Result, error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the parent directories: editors often replace files on save.
	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range e.WatchedFiles() {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var debounceTimer *time.Timer
		defer func() {
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
		}()

		for {
			select {
			case <-egctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if !watched[filepath.Clean(event.Name)] {
					continue
				}
				e.logger.Debug("input changed", "file", event.Name, "op", event.Op.String())

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(opts.Debounce, func() {
					select {
					case trigger <- struct{}{}:
					default:
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				e.logger.Error("watcher error", "error", err)
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-trigger:
				e.logger.Info("rebuilding", "network", e.cfg.Network)
				res, err := e.Build(egctx)
				if egctx.Err() != nil {
					return nil
				}
				onBuild(res, err)
			}
		}
	})

	return eg.Wait()
}
