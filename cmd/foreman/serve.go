package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/internal/retrieval"
	"github.com/forgeworks/foreman/internal/server"
)

// shutdownGrace bounds how long in-flight workflows may take to reach a
// state boundary during shutdown.
const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP task API",
	Long: `Serve the HTTP task-submission API.

On startup, every non-terminal workflow in the state database is
resumed from its last committed phase; workflows suspended on a
clarification question wait for an answer via the API. When retrieval
is enabled and a source directory is configured, the directory is
watched and re-indexed on change while serving.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	comps, err := buildComponents("")
	if err != nil {
		return err
	}
	defer comps.Close()
	logger := comps.logger

	orch := orchestrator.New(comps.invoker, comps.runner, comps.retriever(), comps.db,
		comps.orchestratorOptions(), logger, nil)
	manager := server.NewManager(orch, comps.db, logger)

	answerer, err := comps.registry.Provider(agent.RoleAnalysis)
	if err != nil {
		return err
	}

	srv := server.New(manager, comps.retriever(), answerer, comps.cfg.Server,
		comps.cfg.Retrieval.K, logger)

	if err := manager.Resume(); err != nil {
		return fmt.Errorf("resuming workflows: %w", err)
	}

	if comps.knowledge != nil && comps.cfg.Retrieval.SourceDir != "" {
		indexer := retrieval.NewIndexer(comps.knowledge, comps.cfg.Retrieval.SourceDir, logger)
		watcher, err := retrieval.NewWatcher(indexer, logger)
		if err != nil {
			return fmt.Errorf("starting source watcher: %w", err)
		}
		defer watcher.Close()
	}

	httpSrv := &http.Server{
		Addr:    comps.cfg.Server.Addr,
		Handler: srv.Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("workflow shutdown", zap.Error(err))
	}
	return nil
}
