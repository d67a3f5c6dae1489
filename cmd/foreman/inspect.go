package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/logging"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "Show the indexed chunks for one source file",
	Long: `Print the stored chunks for one indexed source file, in order.
The source is the path relative to the indexed root, as shown in
retrieval matches (for example "internal/store/db.go").`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Path)
	if err != nil {
		return err
	}
	defer logger.Sync()

	knowledge, err := openRetrievalStore(cfg, logger)
	if err != nil {
		return err
	}

	chunks, err := knowledge.Chunks(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Printf("No chunks indexed for %s\n", args[0])
		return nil
	}

	for i, chunk := range chunks {
		fmt.Printf("--- %s chunk %d/%d ---\n%s\n", args[0], i+1, len(chunks), chunk.Content)
	}
	return nil
}
