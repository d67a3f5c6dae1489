package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/store"
	"github.com/forgeworks/foreman/internal/tui"
	"github.com/forgeworks/foreman/pkg/models"
)

var statusPhase string

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show stored workflows",
	Long: `Show the workflows in the state database.

With no argument, lists every stored workflow with its phase and age;
--phase narrows the listing to one phase (for example FAILED). With a
task id, prints the full report for that workflow: plan steps,
artifacts, metrics, and the failure breakdown if it failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPhase, "phase", "", "Only list workflows in this phase")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := stateDBPath(cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No workflows yet. Run 'foreman run \"task\"' to start.")
		return nil
	}

	db, err := openStateDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		w, err := db.Get(args[0])
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("no workflow %s", args[0])
		}
		fmt.Println(tui.RenderReport(w))
		return nil
	}

	var summaries []store.WorkflowSummary
	if statusPhase != "" {
		phase := models.Phase(statusPhase)
		if !phase.Valid() {
			return fmt.Errorf("unknown phase %q", statusPhase)
		}
		summaries, err = db.ListByPhase(phase)
	} else {
		summaries, err = db.List()
	}
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No matching workflows.")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s  %-22s %6s  %q\n",
			s.ID, phaseLabel(s.Phase), formatAge(time.Since(s.UpdatedAt)), truncate(s.Prompt, 60))
	}
	return nil
}

// phaseLabel colorizes terminal phases so the listing scans at a glance.
func phaseLabel(p models.Phase) string {
	switch p {
	case models.PhaseDone:
		return color.GreenString(string(p))
	case models.PhaseFailed:
		return color.RedString(string(p))
	case models.PhaseClarifying:
		return color.YellowString(string(p))
	default:
		return string(p)
	}
}

// formatAge formats a duration in a compact human-readable way.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}

// truncate shortens s to at most n runes for single-line listings.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
