// Package watch keeps converting icons as their BLP sources appear or change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
)

var ErrNothingToWatch = errors.New("no source directories could be watched")

type taskConverter interface {
	ConvertTask(ctx context.Context, task convert.Task) convert.Result
}

type Watcher struct {
	conv     taskConverter
	logger   *logging.Logger
	debounce time.Duration
	onResult func(convert.Result)

	tasks    []convert.Task
	dirs     []string
	bySource map[string][]int
	pending  map[int]struct{}
}

// New indexes tasks by their source path. onResult may be nil.
func New(conv taskConverter, cfg convert.Config, tasks []convert.Task, debounce time.Duration, logger *logging.Logger, onResult func(convert.Result)) *Watcher {
	if conv == nil {
		panic("watch.New: converter must not be nil")
	}
	if logger == nil {
		panic("watch.New: logger must not be nil")
	}
	w := &Watcher{
		conv:     conv,
		logger:   logger,
		debounce: debounce,
		onResult: onResult,
		tasks:    append([]convert.Task(nil), tasks...),
		bySource: map[string][]int{},
		pending:  map[int]struct{}{},
	}
	seenDir := map[string]bool{}
	for i, task := range w.tasks {
		dir := filepath.Join(cfg.SourceRoot, string(task.SourceSubfolder))
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
		key := sourceKey(filepath.Join(dir, task.SourceName))
		w.bySource[key] = append(w.bySource[key], i)
	}
	return w
}

func sourceKey(path string) string {
	dir, name := filepath.Split(filepath.Clean(path))
	return filepath.Join(dir, strings.ToLower(name))
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch source directory", logging.Field("directory", dir), logging.Field("error", err))
			continue
		}
		watched++
	}
	if watched == 0 {
		return ErrNothingToWatch
	}
	w.logger.Info("watching for source changes", logging.Field("directories", watched), logging.Field("tasks", len(w.tasks)))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("stopping watcher: context canceled")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			if w.debounce <= 0 {
				w.flush(ctx)
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Field("error", err))
		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// handleEvent queues the tasks sourced from the event path and reports
// whether anything was queued.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	w.logger.Debugf("fsnotify event: op=%s path=%s", event.Op.String(), event.Name)
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	indices, ok := w.bySource[sourceKey(event.Name)]
	if !ok {
		return false
	}
	for _, i := range indices {
		w.pending[i] = struct{}{}
	}
	return true
}

// flush converts queued tasks in task-list order.
func (w *Watcher) flush(ctx context.Context) {
	for i, task := range w.tasks {
		if _, ok := w.pending[i]; !ok {
			continue
		}
		delete(w.pending, i)
		res := w.conv.ConvertTask(ctx, task)
		if w.onResult != nil {
			w.onResult(res)
		}
	}
}
