package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/pdasim/pkg/adapters/memory"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets editors finish writing before the definition is re-read.
const reloadDelay = 100 * time.Millisecond

// RunWatch re-runs the definition file every time its content changes,
// until ctx is cancelled. Runs are not persisted: a changed definition
// invalidates any stored generation.
func RunWatch(ctx context.Context, opts RunOptions) error {
	info, err := os.Stat(opts.Source)
	if err != nil || info.IsDir() {
		return fmt.Errorf("--watch needs a definition file, got %q", opts.Source)
	}
	path, err := filepath.Abs(opts.Source)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	logger := opts.Logger
	w := opts.stdout()
	opts.RunID = ""
	logger.Info("Starting Watcher", "path", path)
	printSystemMessage(w, "Watching '%s'.", opts.Source)

	var lastHash [md5.Size]byte
	for {
		hash, err := fileHash(path)
		if err == nil && hash != lastHash {
			lastHash = hash
			if !runWatchIteration(ctx, opts, watcher, path) {
				return nil
			}
			continue
		}
		if !waitForChange(ctx, watcher, path) {
			return nil
		}
	}
}

// runWatchIteration runs once and reports whether watching should go on.
// A change detected mid-run cancels the run and returns immediately.
func runWatchIteration(ctx context.Context, opts RunOptions, watcher *fsnotify.Watcher, path string) bool {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := runOnce(runCtx, opts, memory.NewStore(), nil)
		done <- err
	}()

	select {
	case err := <-done:
		cancel()
		if err != nil {
			opts.Logger.Error("Run failed", "err", err)
			printSystemMessage(opts.stdout(), "Error: %v", err)
		}
		if ctx.Err() != nil {
			return false
		}
		printSystemMessage(opts.stdout(), "Waiting for changes...")
		return waitForChange(ctx, watcher, path)
	case <-ctx.Done():
		<-done
		return false
	case changed := <-changes(runCtx, watcher, path):
		cancel()
		<-done
		return changed || ctx.Err() == nil
	}
}

// changes delivers one value once path changes or ctx ends.
func changes(ctx context.Context, watcher *fsnotify.Watcher, path string) <-chan bool {
	ch := make(chan bool, 1)
	go func() { ch <- waitForChange(ctx, watcher, path) }()
	return ch
}

// waitForChange blocks until path is written or recreated, returning false
// when ctx ends or the watcher closes.
func waitForChange(ctx context.Context, watcher *fsnotify.Watcher, path string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			time.Sleep(reloadDelay)
			return true
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				return false
			}
		}
	}
}

func fileHash(path string) ([md5.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [md5.Size]byte{}, err
	}
	return md5.Sum(data), nil
}
