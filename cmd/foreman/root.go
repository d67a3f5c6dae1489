package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "foreman",
	Short: "Supervisory engine for automated code generation",
	Long: `Foreman drives code-generation tasks through a supervised workflow:
it classifies each prompt, asks for clarification when the prompt is
ambiguous, decomposes complex tasks into plan steps, and runs every
generated artifact set through functional testing and quality review
inside bounded correction loops.

Progress is committed to a local state database at every phase
transition, so an interrupted workflow resumes exactly where it
stopped.

Common commands:
  foreman run "task"    Run one task in the terminal
  foreman serve         Serve the HTTP task API
  foreman status        Show stored workflows
  foreman index         Index a source tree for retrieval context`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
