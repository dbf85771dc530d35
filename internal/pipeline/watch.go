package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 2 * time.Second

// Watch runs once and then keeps watching the source root, processing new
// or rewritten documents after writes settle. Documents are still handled
// one at a time on the calling goroutine. It returns nil when ctx ends.
func (r *Runner) Watch(ctx context.Context, opts Options, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := r.logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	root := r.Home.SourcePath()
	if err := watchTree(watcher, root); err != nil {
		return err
	}

	if _, err := r.Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.Info("watching for source changes", "source", root)
	if r.watchReady != nil {
		r.watchReady()
	}

	pending := make(map[string]struct{})
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped watching", "source", root)
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, ev.Name); err != nil {
						logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsSource(ev.Name) {
				continue
			}
			if opts.Subject != "" && !strings.EqualFold(SubjectOf(ev.Name), opts.Subject) {
				continue
			}
			pending[ev.Name] = struct{}{}
			settle = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-settle:
			settle = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			sort.Strings(paths)

			for _, path := range paths {
				if ctx.Err() != nil {
					return nil
				}
				st := Classify(path, r.Home.DatasetPath(SubjectOf(path)), r.Progress)
				if st.State == StateComplete {
					logger.Info("changed file already complete, skipping", "source", path)
					continue
				}
				logger.Info("processing changed file", "source", path)
				if _, err := r.ProcessFile(ctx, path); err != nil && ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

// watchTree adds root and every directory below it. fsnotify is not recursive.
func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
