package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads an ArtifactStore when its model or schema file changes.
type Watcher struct {
	store    *ArtifactStore
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	done     chan struct{}
}

// NewWatcher watches the directories holding the store's files so that a
// file replaced by rename is still seen.
func NewWatcher(store *ArtifactStore, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	paths := store.Paths()
	w := &Watcher{
		store:    store,
		logger:   logger,
		watcher:  fw,
		files:    make(map[string]bool),
		debounce: 250 * time.Millisecond,
		done:     make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range []string{paths.ModelPath, paths.SchemaPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// coalesce the burst of writes an export produces
			pending = true
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.store.Reload(); err != nil {
				w.logger.Error("artifact reload failed, keeping previous model", zap.Error(err))
				continue
			}
			current, generation := w.store.Current()
			w.logger.Info("artifacts reloaded",
				zap.Uint64("generation", generation),
				zap.String("model_type", ModelType(current.Model)),
				zap.Int("columns", current.Schema.Len()),
			)
		}
	}
}

// Done is closed once Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}
