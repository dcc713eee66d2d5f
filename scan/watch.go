package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/vmod-types/errors"
)

// Watch scans once, calls fn with the results and rescans every time a
// matching file in the vmod directory is written, created, removed or
// renamed. Bursts of events within the configured debounce interval
// collapse into one rescan. Watch blocks until ctx is done and then
// returns nil.
//
// Only local directories can be watched.
func (s *Scanner) Watch(ctx context.Context, fn func([]Result)) error {
	dir, err := localDir(s.cfg.Vmods.Dir)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	rescan := func() {
		results, err := s.Scan(ctx)
		if err != nil {
			if ctx.Err() == nil {
				Logger().Error("rescan failed", zap.String("dir", dir), zap.Error(err))
			}
			return
		}
		fn(results)
	}

	rescan()
	Logger().Info("watching vmod directory", zap.String("dir", dir))

	debounce := s.cfg.Scan.Debounce
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, ok := s.cfg.ModuleName(filepath.Base(event.Name)); !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			Logger().Debug("vmod file changed",
				zap.String("event", event.Op.String()),
				zap.String("file", event.Name))

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			rescan()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			Logger().Error("file watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func localDir(dir string) (string, error) {
	path := strings.TrimPrefix(dir, "file://")
	if strings.Contains(path, "://") {
		return "", errors.InvalidInput(errors.PhaseScan,
			fmt.Sprintf("cannot watch non-local directory %s", dir))
	}
	return path, nil
}
