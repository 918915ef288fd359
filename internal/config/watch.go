package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"CanvasBoard/internal/logging"
)

// Watch reloads path whenever it changes and passes the result to fn until
// ctx is done. The directory is watched rather than the file, so editors
// that save by renaming are seen too.
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("config watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				logging.Logger().Debug("config changed", "path", path, "op", ev.Op.String())
				fn(Load(path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Logger().Warn("config watch error", "err", err)
			}
		}
	}()
	return nil
}
