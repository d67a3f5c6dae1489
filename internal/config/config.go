// Package config handles configuration loading and management for foreman.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Backend names a provider implementation for agent roles.
type Backend string

const (
	// BackendAnthropic uses the Anthropic Messages API.
	BackendAnthropic Backend = "anthropic"
	// BackendOpenAI uses an OpenAI-compatible chat completions API.
	// This covers local Ollama deployments via base_url.
	BackendOpenAI Backend = "openai"
)

// Config holds all configuration for foreman.
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Budgets   BudgetsConfig   `mapstructure:"budgets"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	State     StateConfig     `mapstructure:"state"`
}

// ProviderConfig binds one agent role to a model provider. The orchestrator
// never sees this; the binding happens before invocation.
type ProviderConfig struct {
	// Backend selects the provider implementation.
	Backend Backend `mapstructure:"backend"`
	// Model is the model identifier passed to the provider.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint (e.g. an Ollama host).
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the provider credential. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Mode is an optional role-specific hint forwarded to the provider.
	Mode string `mapstructure:"mode"`
}

// ProvidersConfig holds the per-role provider bindings.
type ProvidersConfig struct {
	Routing       ProviderConfig `mapstructure:"routing"`
	Clarification ProviderConfig `mapstructure:"clarification"`
	Planning      ProviderConfig `mapstructure:"planning"`
	Coding        ProviderConfig `mapstructure:"coding"`
	Review        ProviderConfig `mapstructure:"review"`
	Analysis      ProviderConfig `mapstructure:"analysis"`
}

// BudgetsConfig holds the bounded iteration budgets.
type BudgetsConfig struct {
	// FunctionalAttempts is the per-step functional correction budget.
	FunctionalAttempts int `mapstructure:"functional_attempts"`
	// QAAttempts is the per-step quality-review correction budget.
	QAAttempts int `mapstructure:"qa_attempts"`
	// SchemaRetries is how many times a schema-invalid agent result is
	// re-requested before escalating to a tooling failure.
	SchemaRetries int `mapstructure:"schema_retries"`
	// InfraRetries is how many times a sandbox infrastructure error is
	// retried before escalating to a tooling failure.
	InfraRetries int `mapstructure:"infra_retries"`
	// MaxClarifications caps clarification rounds per task. Once reached,
	// a further clarify decision is coerced to planning.
	MaxClarifications int `mapstructure:"max_clarifications"`
}

// TimeoutsConfig holds mandatory call timeouts.
type TimeoutsConfig struct {
	// Agent is the per-call timeout for agent invocations.
	Agent time.Duration `mapstructure:"agent"`
	// Sandbox is the per-run timeout for sandbox executions.
	Sandbox time.Duration `mapstructure:"sandbox"`
}

// SandboxConfig selects and configures the sandbox runner.
type SandboxConfig struct {
	// Mode is "local" or "remote".
	Mode string `mapstructure:"mode"`
	// URL is the remote sandbox service endpoint.
	URL string `mapstructure:"url"`
	// DefaultTestCommand is used when a coding result carries no test
	// definition of its own.
	DefaultTestCommand string `mapstructure:"default_test_command"`
	// Environment is an opaque descriptor forwarded to the runner.
	Environment string `mapstructure:"environment"`
}

// RetrievalConfig configures the context retrieval store.
type RetrievalConfig struct {
	// Enabled toggles retrieval-augmented coding context.
	Enabled bool `mapstructure:"enabled"`
	// Path is the persistent vector store directory.
	Path string `mapstructure:"path"`
	// Collection is the store collection name.
	Collection string `mapstructure:"collection"`
	// K is the number of snippets requested per query.
	K int `mapstructure:"k"`
	// ScoreThreshold drops snippets with similarity below this value.
	ScoreThreshold float32 `mapstructure:"score_threshold"`
	// SourceDir is the directory indexed by `foreman index` and watched
	// for changes while serving.
	SourceDir string `mapstructure:"source_dir"`
	// Embedding configures the embeddings endpoint.
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// EmbeddingConfig configures the OpenAI-compatible embeddings client.
type EmbeddingConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ServerConfig configures the HTTP task-submission boundary.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr"`
	// AllowOriginRegex restricts CORS to matching origins.
	AllowOriginRegex string `mapstructure:"allow_origin_regex"`
	// AnalysisSummary enables the metrics-analysis summary on terminal workflows.
	AnalysisSummary bool `mapstructure:"analysis_summary"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Path is an optional log file; empty logs to stderr.
	Path string `mapstructure:"path"`
}

// StateConfig configures workflow persistence.
type StateConfig struct {
	// Path is the SQLite database file. Empty uses the project default.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (FOREMAN_*, plus ANTHROPIC_API_KEY / OPENAI_API_KEY)
// 2. Project config (.foreman/config.yaml in the current directory or a parent)
// 3. User config (~/.config/foreman/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("FOREMAN")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Budgets.FunctionalAttempts < 1 {
		return fmt.Errorf("budgets.functional_attempts must be at least 1, got %d", c.Budgets.FunctionalAttempts)
	}
	if c.Budgets.QAAttempts < 1 {
		return fmt.Errorf("budgets.qa_attempts must be at least 1, got %d", c.Budgets.QAAttempts)
	}
	if c.Budgets.SchemaRetries < 0 || c.Budgets.InfraRetries < 0 {
		return fmt.Errorf("retry budgets must not be negative")
	}
	if c.Timeouts.Agent <= 0 || c.Timeouts.Sandbox <= 0 {
		return fmt.Errorf("timeouts.agent and timeouts.sandbox must be positive")
	}
	if c.Sandbox.Mode != "local" && c.Sandbox.Mode != "remote" {
		return fmt.Errorf("sandbox.mode must be local or remote, got %q", c.Sandbox.Mode)
	}
	if c.Sandbox.Mode == "remote" && c.Sandbox.URL == "" {
		return fmt.Errorf("sandbox.url is required in remote mode")
	}
	if c.Server.AllowOriginRegex != "" {
		if _, err := regexp.Compile(c.Server.AllowOriginRegex); err != nil {
			return fmt.Errorf("server.allow_origin_regex: %w", err)
		}
	}
	return nil
}

// Roles returns the provider binding for each known role name.
func (p ProvidersConfig) Roles() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"routing":       p.Routing,
		"clarification": p.Clarification,
		"planning":      p.Planning,
		"coding":        p.Coding,
		"review":        p.Review,
		"analysis":      p.Analysis,
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	for _, role := range []string{"routing", "clarification", "planning", "coding", "review", "analysis"} {
		v.SetDefault("providers."+role+".backend", string(BackendAnthropic))
		v.SetDefault("providers."+role+".model", "")
		v.SetDefault("providers."+role+".api_key", "${ANTHROPIC_API_KEY}")
	}

	v.SetDefault("budgets.functional_attempts", 3)
	v.SetDefault("budgets.qa_attempts", 2)
	v.SetDefault("budgets.schema_retries", 2)
	v.SetDefault("budgets.infra_retries", 3)
	v.SetDefault("budgets.max_clarifications", 3)

	v.SetDefault("timeouts.agent", "2m")
	v.SetDefault("timeouts.sandbox", "10m")

	v.SetDefault("sandbox.mode", "local")
	v.SetDefault("sandbox.default_test_command", "")
	v.SetDefault("sandbox.environment", "default")

	v.SetDefault("retrieval.enabled", false)
	v.SetDefault("retrieval.path", ".foreman/knowledge")
	v.SetDefault("retrieval.collection", "foreman_default")
	v.SetDefault("retrieval.k", 10)
	v.SetDefault("retrieval.score_threshold", 0.7)
	v.SetDefault("retrieval.embedding.model", "mxbai-embed-large")
	v.SetDefault("retrieval.embedding.base_url", "http://127.0.0.1:11434/v1")
	v.SetDefault("retrieval.embedding.api_key", "${OPENAI_API_KEY}")

	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.allow_origin_regex", `^http://127\.0\.0\.1:.*$`)
	v.SetDefault("server.analysis_summary", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")

	v.SetDefault("state.path", "")
}

// expandSecrets expands ${VAR} references in credential fields.
func expandSecrets(cfg *Config) {
	cfg.Providers.Routing.APIKey = expandEnv(cfg.Providers.Routing.APIKey)
	cfg.Providers.Clarification.APIKey = expandEnv(cfg.Providers.Clarification.APIKey)
	cfg.Providers.Planning.APIKey = expandEnv(cfg.Providers.Planning.APIKey)
	cfg.Providers.Coding.APIKey = expandEnv(cfg.Providers.Coding.APIKey)
	cfg.Providers.Review.APIKey = expandEnv(cfg.Providers.Review.APIKey)
	cfg.Providers.Analysis.APIKey = expandEnv(cfg.Providers.Analysis.APIKey)
	cfg.Retrieval.Embedding.APIKey = expandEnv(cfg.Retrieval.Embedding.APIKey)
}

// expandEnv expands ${VAR} references. A reference to an unset variable
// expands to the empty string.
func expandEnv(s string) string {
	return os.Expand(s, os.Getenv)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// getUserConfigDir returns the XDG config directory for foreman.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "foreman")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "foreman")
	}
	return filepath.Join(home, ".config", "foreman")
}

// findProjectConfig searches for .foreman/config.yaml in the current
// directory and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir := cwd
	for {
		candidate := filepath.Join(dir, ".foreman", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
