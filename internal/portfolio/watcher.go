package portfolio

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/devon-brazier/rebalancer.v2/internal/logger"
)

// Watch observes the portfolio table on disk and invokes onChange whenever it
// is written. Targets are loaded once at startup, so the callback is only a
// heads-up to the operator that a restart is needed to apply the new table.
func Watch(ctx context.Context, path string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Warnf("portfolio table changed on disk (%s)", evt.Name)
				if onChange != nil {
					onChange(evt.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Errorf("portfolio watcher error: %v", err)
			}
		}
	}()
	return nil
}
