package retrieval

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// skipDirs are directory names the indexer never descends into.
var skipDirs = map[string]bool{
	".git":         true,
	".foreman":     true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IndexStats summarizes one indexing pass.
type IndexStats struct {
	Files   int
	Chunks  int
	Skipped int
	Failed  int
}

// Indexer walks a source tree and ingests indexable files into the store.
type Indexer struct {
	store  *Store
	root   string
	logger *zap.Logger
}

// NewIndexer creates an indexer rooted at root.
func NewIndexer(store *Store, root string, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{store: store, root: root, logger: logger}
}

// IndexAll walks the tree and indexes every indexable file. A file that
// fails to read or embed is logged and counted, not fatal; one broken file
// must not abort the pass.
func (ix *Indexer) IndexAll(ctx context.Context) (IndexStats, error) {
	var stats IndexStats

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != ix.root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Indexable(d.Name()) {
			stats.Skipped++
			return nil
		}

		chunks, ferr := ix.indexFile(ctx, path)
		if ferr != nil {
			ix.logger.Warn("indexing file failed", zap.String("path", path), zap.Error(ferr))
			stats.Failed++
			return nil
		}
		stats.Files++
		stats.Chunks += chunks
		return nil
	})
	if err != nil {
		return stats, err
	}

	ix.logger.Info("index pass complete",
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// IndexFile indexes a single file by absolute or root-relative path.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(ix.root, path)
	}
	return ix.indexFile(ctx, path)
}

func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	source, err := filepath.Rel(ix.root, path)
	if err != nil {
		source = path
	}
	return ix.store.IndexDocument(ctx, filepath.ToSlash(source), string(content))
}
