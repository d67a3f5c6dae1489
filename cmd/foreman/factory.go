package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/logging"
	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/internal/retrieval"
	"github.com/forgeworks/foreman/internal/sandbox"
	"github.com/forgeworks/foreman/internal/store"
)

// components holds the long-lived pieces the workflow-driving commands
// assemble: providers, sandbox runner, retrieval store, and state database.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *agent.Registry
	invoker  *agent.LLMInvoker
	runner   sandbox.Runner
	// knowledge is nil when retrieval is disabled.
	knowledge *retrieval.Store
	db        *store.DB
}

// buildComponents wires the shared stack from configuration.
// fallbackLogPath is used when no log path is configured; the run command
// passes a file so logs do not tear the live terminal view.
func buildComponents(fallbackLogPath string) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = fallbackLogPath
	}
	logger, err := logging.New(cfg.Logging.Level, logPath)
	if err != nil {
		return nil, err
	}

	registry, err := agent.NewRegistry(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}

	var runner sandbox.Runner
	if cfg.Sandbox.Mode == "remote" {
		runner = sandbox.NewRemoteRunner(cfg.Sandbox.URL, logger)
	} else {
		runner = sandbox.NewLocalRunner(logger)
	}

	var knowledge *retrieval.Store
	if cfg.Retrieval.Enabled {
		knowledge, err = openRetrievalStore(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	db, err := openStateDB(cfg)
	if err != nil {
		return nil, err
	}

	return &components{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		invoker:   agent.NewLLMInvoker(registry, logger),
		runner:    runner,
		knowledge: knowledge,
		db:        db,
	}, nil
}

// openRetrievalStore opens the persistent vector store named by the config.
func openRetrievalStore(cfg *config.Config, logger *zap.Logger) (*retrieval.Store, error) {
	emb := retrieval.NewEmbedder(
		cfg.Retrieval.Embedding.BaseURL,
		cfg.Retrieval.Embedding.APIKey,
		cfg.Retrieval.Embedding.Model,
	)
	st, err := retrieval.NewStore(cfg.Retrieval.Path, cfg.Retrieval.Collection,
		cfg.Retrieval.ScoreThreshold, emb.Func(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening retrieval store: %w", err)
	}
	return st, nil
}

// openStateDB opens and migrates the workflow state database.
func openStateDB(cfg *config.Config) (*store.DB, error) {
	path, err := stateDBPath(cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating state database: %w", err)
	}
	return db, nil
}

// stateDBPath resolves the configured database path, defaulting to the
// project-local location.
func stateDBPath(cfg *config.Config) (string, error) {
	if cfg.State.Path != "" {
		return cfg.State.Path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return store.ProjectDBPath(cwd), nil
}

// orchestratorOptions maps configuration onto orchestrator options.
func (c *components) orchestratorOptions() orchestrator.Options {
	return orchestrator.Options{
		Budgets:            c.cfg.Budgets,
		AgentTimeout:       c.cfg.Timeouts.Agent,
		SandboxTimeout:     c.cfg.Timeouts.Sandbox,
		DefaultTestCommand: c.cfg.Sandbox.DefaultTestCommand,
		Environment:        c.cfg.Sandbox.Environment,
		RetrievalK:         c.cfg.Retrieval.K,
		AnalysisSummary:    c.cfg.Server.AnalysisSummary,
	}
}

// retriever returns the retrieval interface, or an untyped nil when
// retrieval is disabled so downstream nil checks behave.
func (c *components) retriever() retrieval.Retriever {
	if c.knowledge == nil {
		return nil
	}
	return c.knowledge
}

// Close releases the state database and flushes the logger.
func (c *components) Close() {
	if c.db != nil {
		c.db.Close()
	}
	_ = c.logger.Sync()
}
