package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show resolved configuration",
	Long: `Show the effective foreman configuration after defaults, the user
config, the project config, and environment variables are merged.

Without arguments, displays the full resolved configuration.
With one argument (key), displays the value for that dot-notation key.

Configuration is read from ~/.config/foreman/config.yaml with
project-specific overrides in .foreman/config.yaml. Credentials are
always masked.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			value, ok := configValues(cfg)[strings.ToLower(args[0])]
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: unknown configuration key: %s\n", args[0])
				os.Exit(1)
			}
			fmt.Println(value)
			return
		}
		displayAllConfig(cfg)
	},
}

// displayAllConfig prints every configuration value in key order.
func displayAllConfig(cfg *config.Config) {
	values := configValues(cfg)
	for _, key := range configKeys {
		fmt.Printf("%s: %s\n", key, values[key])
	}
}

// configKeys fixes the display order; maps iterate randomly.
var configKeys = []string{
	"providers.routing.backend",
	"providers.routing.model",
	"providers.routing.api_key",
	"providers.clarification.backend",
	"providers.clarification.model",
	"providers.clarification.api_key",
	"providers.planning.backend",
	"providers.planning.model",
	"providers.planning.api_key",
	"providers.coding.backend",
	"providers.coding.model",
	"providers.coding.api_key",
	"providers.review.backend",
	"providers.review.model",
	"providers.review.api_key",
	"providers.analysis.backend",
	"providers.analysis.model",
	"providers.analysis.api_key",
	"budgets.functional_attempts",
	"budgets.qa_attempts",
	"budgets.schema_retries",
	"budgets.infra_retries",
	"budgets.max_clarifications",
	"timeouts.agent",
	"timeouts.sandbox",
	"sandbox.mode",
	"sandbox.url",
	"sandbox.default_test_command",
	"sandbox.environment",
	"retrieval.enabled",
	"retrieval.path",
	"retrieval.collection",
	"retrieval.k",
	"retrieval.score_threshold",
	"retrieval.source_dir",
	"retrieval.embedding.model",
	"retrieval.embedding.base_url",
	"retrieval.embedding.api_key",
	"server.addr",
	"server.allow_origin_regex",
	"server.analysis_summary",
	"logging.level",
	"logging.path",
	"state.path",
}

// configValues flattens the config into dot-notation keys with credentials
// masked.
func configValues(cfg *config.Config) map[string]string {
	values := map[string]string{
		"budgets.functional_attempts": strconv.Itoa(cfg.Budgets.FunctionalAttempts),
		"budgets.qa_attempts":         strconv.Itoa(cfg.Budgets.QAAttempts),
		"budgets.schema_retries":      strconv.Itoa(cfg.Budgets.SchemaRetries),
		"budgets.infra_retries":       strconv.Itoa(cfg.Budgets.InfraRetries),
		"budgets.max_clarifications":  strconv.Itoa(cfg.Budgets.MaxClarifications),

		"timeouts.agent":   cfg.Timeouts.Agent.String(),
		"timeouts.sandbox": cfg.Timeouts.Sandbox.String(),

		"sandbox.mode":                 cfg.Sandbox.Mode,
		"sandbox.url":                  orUnset(cfg.Sandbox.URL),
		"sandbox.default_test_command": orUnset(cfg.Sandbox.DefaultTestCommand),
		"sandbox.environment":          cfg.Sandbox.Environment,

		"retrieval.enabled":            strconv.FormatBool(cfg.Retrieval.Enabled),
		"retrieval.path":               cfg.Retrieval.Path,
		"retrieval.collection":         cfg.Retrieval.Collection,
		"retrieval.k":                  strconv.Itoa(cfg.Retrieval.K),
		"retrieval.score_threshold":    fmt.Sprintf("%.2f", cfg.Retrieval.ScoreThreshold),
		"retrieval.source_dir":         orUnset(cfg.Retrieval.SourceDir),
		"retrieval.embedding.model":    cfg.Retrieval.Embedding.Model,
		"retrieval.embedding.base_url": cfg.Retrieval.Embedding.BaseURL,

		"server.addr":               cfg.Server.Addr,
		"server.allow_origin_regex": cfg.Server.AllowOriginRegex,
		"server.analysis_summary":   strconv.FormatBool(cfg.Server.AnalysisSummary),

		"logging.level": cfg.Logging.Level,
		"logging.path":  orUnset(cfg.Logging.Path),
		"state.path":    orUnset(cfg.State.Path),
	}

	for role, pc := range cfg.Providers.Roles() {
		values["providers."+role+".backend"] = string(pc.Backend)
		values["providers."+role+".model"] = orUnset(pc.Model)
		values["providers."+role+".api_key"] = maskSecret(pc.APIKey)
	}
	values["retrieval.embedding.api_key"] = maskSecret(cfg.Retrieval.Embedding.APIKey)
	return values
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "****"
}
