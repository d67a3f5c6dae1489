package retrieval

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps the index current while the server runs by reindexing
// files as they change on disk.
type Watcher struct {
	indexer *Indexer
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	done    chan struct{}
}

// NewWatcher starts watching the indexer's source tree. Every directory is
// registered up front; directories created later are added as their create
// events arrive.
func NewWatcher(indexer *Indexer, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		indexer: indexer,
		watcher: fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}

	err = filepath.WalkDir(indexer.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != indexer.root) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	base := filepath.Base(event.Name)
	if skipDirs[base] || strings.HasPrefix(base, ".") {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		// New directories need their own watch to see files inside them.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("watching new directory failed", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !Indexable(base) {
		return
	}
	if _, err := w.indexer.IndexFile(context.Background(), event.Name); err != nil {
		w.logger.Warn("reindexing changed file failed", zap.String("path", event.Name), zap.Error(err))
		return
	}
	w.logger.Debug("reindexed changed file", zap.String("path", event.Name))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
