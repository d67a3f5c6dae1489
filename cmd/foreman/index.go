package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/logging"
	"github.com/forgeworks/foreman/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Index a source tree into the retrieval store",
	Long: `Walk a source tree and ingest every indexable file into the
retrieval store so coding calls receive relevant context snippets.

Re-indexing a file replaces its previous chunks. The directory
defaults to retrieval.source_dir from the configuration, then to the
current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Path)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Indexing is explicit, so it does not require retrieval.enabled.
	knowledge, err := openRetrievalStore(cfg, logger)
	if err != nil {
		return err
	}

	root := cfg.Retrieval.SourceDir
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}

	indexer := retrieval.NewIndexer(knowledge, root, logger)
	stats, err := indexer.IndexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing %s: %w", root, err)
	}

	fmt.Printf("Indexed %d files (%d chunks), %d skipped, %d failed\n",
		stats.Files, stats.Chunks, stats.Skipped, stats.Failed)
	return nil
}
