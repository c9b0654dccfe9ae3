package source

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/muratoffalex/memebot/internal/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher calls onChange after writes to a single file settle. The
// directory is watched instead of the file because editors often replace
// the file on save.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   logger.Logger
}

func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context), log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		logger:   log.WithField("file", path),
	}
}

// Run blocks until ctx is cancelled or the watcher fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	filename := filepath.Base(absPath)

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}
	w.logger.Info("Watching meme spreadsheet for changes")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.logger.Info("Meme spreadsheet changed, reloading")
				w.onChange(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("File watcher error")
		}
	}
}
