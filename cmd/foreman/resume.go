package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/pkg/models"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [task-id]",
	Short: "Resume an interrupted workflow",
	Long: `Resume a workflow from its last committed phase.

With no argument, lists the workflows that can be resumed. A workflow
suspended on a clarification question prompts for the answer first,
then continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listResumable()
	}

	comps, err := buildComponents(terminalLogPath())
	if err != nil {
		return err
	}
	defer comps.Close()

	w, err := comps.db.Get(args[0])
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("no workflow %s", args[0])
	}
	if w.Phase.Terminal() {
		return fmt.Errorf("workflow %s already finished (%s)", args[0], w.Phase)
	}

	return runInTerminal(comps, w.Request.Prompt, func(*orchestrator.Orchestrator) (*models.WorkflowState, error) {
		return w, nil
	})
}

// listResumable prints every stored workflow that is not yet terminal.
func listResumable() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := stateDBPath(cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("Nothing to resume.")
		return nil
	}

	db, err := openStateDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	states, err := db.ListResumable()
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Println("Nothing to resume.")
		return nil
	}

	fmt.Println("Resumable workflows:")
	for _, w := range states {
		note := ""
		if w.PendingQuestion != "" {
			note = color.YellowString(" (awaiting answer)")
		}
		fmt.Printf("  %s  %s%s  %q\n", w.ID(), phaseLabel(w.Phase), note, truncate(w.Request.Prompt, 60))
	}
	fmt.Println("\nResume one with: foreman resume <task-id>")
	return nil
}
