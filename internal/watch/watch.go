// Package watch re-runs a translation whenever the input document changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/soptranslator/internal/checksum"
)

// RunFunc performs one translation of the watched input.
type RunFunc func(ctx context.Context)

// Watch runs fn once, then watches the directory of input and calls fn again
// after each debounced change whose content checksum differs from the last
// processed one. It blocks until ctx is cancelled.
//
// The directory is watched rather than the file so editors that save by
// rename keep being tracked.
func Watch(ctx context.Context, input string, debounce time.Duration, logger *slog.Logger, fn RunFunc) error {
	input, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("watch: resolve input: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(input)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(input), err)
	}

	last := sum(input)
	fn(ctx)

	logger.Info("watcher: started", slog.String("input", input))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			cur := sum(input)
			if cur == "" || cur == last {
				logger.Debug("watcher: input unchanged", slog.String("input", input))
				continue
			}
			last = cur
			logger.Info("watcher: input changed", slog.String("input", input))
			fn(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != input {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// sum returns the checksum of the file, or "" if it cannot be read.
func sum(path string) string {
	s, err := checksum.File(path)
	if err != nil {
		return ""
	}
	return s
}
