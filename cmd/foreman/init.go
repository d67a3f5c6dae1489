package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a foreman project",
	Long: `Initialize a directory for use with foreman.

This command creates the .foreman directory that holds the project
configuration, the workflow state database, logs, and the retrieval
store. The directory argument is optional and defaults to the current
directory.

Examples:
  foreman init              # Initialize current directory
  foreman init ./myproject  # Initialize specific directory
  foreman init --force      # Rewrite the config even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing foreman in %s...\n\n", absPath)

	foremanDir := filepath.Join(absPath, ".foreman")
	configPath := filepath.Join(foremanDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, dir := range []string{foremanDir, filepath.Join(foremanDir, "logs")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .foreman directory structure", color.FgGreen)

	if err := writeDefaultConfig(configPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	printStatus("✓", "Created .foreman/config.yaml", color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}

	fmt.Printf("\n%s Foreman initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Run a task:")
	fmt.Println("     foreman run \"your task here\"")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     foreman --help")
	return nil
}

// writeDefaultConfig writes the default project configuration. Every value
// matches the built-in default, so the file is a template to edit rather
// than a behavior change.
func writeDefaultConfig(path string) error {
	doc := map[string]any{
		"providers": map[string]any{
			"routing":       map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
			"clarification": map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
			"planning":      map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
			"coding":        map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
			"review":        map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
			"analysis":      map[string]any{"backend": "anthropic", "model": "", "api_key": "${ANTHROPIC_API_KEY}"},
		},
		"budgets": map[string]any{
			"functional_attempts": 3,
			"qa_attempts":         2,
			"schema_retries":      2,
			"infra_retries":       3,
			"max_clarifications":  3,
		},
		"timeouts": map[string]any{
			"agent":   "2m",
			"sandbox": "10m",
		},
		"sandbox": map[string]any{
			"mode":                 "local",
			"default_test_command": "",
			"environment":          "default",
		},
		"retrieval": map[string]any{
			"enabled":         false,
			"path":            ".foreman/knowledge",
			"collection":      "foreman_default",
			"k":               10,
			"score_threshold": 0.7,
			"source_dir":      "",
			"embedding": map[string]any{
				"model":    "mxbai-embed-large",
				"base_url": "http://127.0.0.1:11434/v1",
				"api_key":  "${OPENAI_API_KEY}",
			},
		},
		"server": map[string]any{
			"addr":               "127.0.0.1:8000",
			"allow_origin_regex": `^http://127\.0\.0\.1:.*$`,
			"analysis_summary":   false,
		},
		"logging": map[string]any{
			"level": "info",
			"path":  "",
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	header := "# Foreman project configuration.\n# Overrides ~/.config/foreman/config.yaml; FOREMAN_* env vars override both.\n\n"
	return os.WriteFile(path, append([]byte(header), data...), 0644)
}

// updateGitignore adds foreman state entries to .gitignore when the project
// is a git repository.
func updateGitignore(repoPath string) error {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); os.IsNotExist(err) {
		return nil
	}

	gitignorePath := filepath.Join(repoPath, ".gitignore")
	var existing string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	entries := []string{".foreman/state.db*", ".foreman/knowledge/", ".foreman/logs/"}
	var missing []string
	for _, entry := range entries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(existing)
	if len(existing) > 0 && !strings.HasSuffix(existing, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n# Foreman\n")
	for _, entry := range missing {
		sb.WriteString(entry + "\n")
	}
	if err := os.WriteFile(gitignorePath, []byte(sb.String()), 0644); err != nil {
		return err
	}
	printStatus("✓", "Updated .gitignore with foreman entries", color.FgGreen)
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
