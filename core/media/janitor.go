package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"VidTube/logger"
)

// Janitor deletes staged files that are still around after maxAge. Requests clean up
// after themselves; this catches what a crashed request left behind.
type Janitor struct {
	dir    string
	maxAge time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewJanitor creates a new Janitor.
func NewJanitor(dir string, maxAge time.Duration) *Janitor {
	return &Janitor{dir: dir, maxAge: maxAge, timers: make(map[string]*time.Timer)}
}

// Sweep removes regular files in the directory older than maxAge and returns how many it removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read staging dir: %w", err)
	}
	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Run sweeps once, then watches the directory until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(j.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", j.dir, err)
	}

	if n, err := j.Sweep(); err != nil {
		logger.Warn("[Janitor] startup sweep failed", logger.ErrorField(err))
	} else if n > 0 {
		logger.Info("[Janitor] removed stale staged files", logger.Int("count", n))
	}

	defer j.stopAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create):
				j.schedule(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				j.cancel(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[Janitor] watcher error", logger.ErrorField(err))
		}
	}
}

// Pending returns the number of files waiting for their deadline.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.timers)
}

func (j *Janitor) schedule(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.timers[path]; ok {
		return
	}
	j.timers[path] = time.AfterFunc(j.maxAge, func() {
		j.mu.Lock()
		delete(j.timers, path)
		j.mu.Unlock()

		err := os.Remove(path)
		switch {
		case err == nil:
			logger.Warn("[Janitor] removed orphaned staged file", logger.String("path", path))
		case !errors.Is(err, os.ErrNotExist):
			logger.Warn("[Janitor] failed to remove staged file", logger.String("path", path), logger.ErrorField(err))
		}
	})
}

func (j *Janitor) cancel(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if t, ok := j.timers[path]; ok {
		t.Stop()
		delete(j.timers, path)
	}
}

func (j *Janitor) stopAll() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for path, t := range j.timers {
		t.Stop()
		delete(j.timers, path)
	}
}
