package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/internal/tui"
	"github.com/forgeworks/foreman/pkg/models"
)

var runAttachments []string

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one task through the workflow",
	Long: `Run a single task prompt through the full workflow in the terminal.

The live view shows every phase transition. If the prompt is ambiguous
the workflow suspends with a clarification question; type the answer
and press Enter to continue. The final report lists the produced
artifacts, or explains why the workflow failed.

Examples:
  foreman run "add a retry wrapper around the fetch client"
  foreman run "fix the crash in the parser" --attach crash.log`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runAttachments, "attach", nil, "Attach a file to the task (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	attachments, err := loadAttachments(runAttachments)
	if err != nil {
		return err
	}

	comps, err := buildComponents(terminalLogPath())
	if err != nil {
		return err
	}
	defer comps.Close()

	return runInTerminal(comps, args[0], func(orch *orchestrator.Orchestrator) (*models.WorkflowState, error) {
		w, err := orch.NewTask(models.NewTaskRequest(args[0], attachments))
		if err != nil {
			return nil, fmt.Errorf("creating task: %w", err)
		}
		return w, nil
	})
}

// runInTerminal drives one workflow under the live terminal view. load
// receives the orchestrator and returns the workflow to drive, either a
// fresh task or a reloaded one.
func runInTerminal(comps *components, prompt string, load func(*orchestrator.Orchestrator) (*models.WorkflowState, error)) error {
	var program *tea.Program
	orch := orchestrator.New(comps.invoker, comps.runner, comps.retriever(), comps.db,
		comps.orchestratorOptions(), comps.logger, func(ev orchestrator.Event) {
			if program != nil {
				program.Send(tui.ProgressMsg(ev))
			}
		})

	w, err := load(orch)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report := func(err error) {
		switch {
		case errors.Is(err, orchestrator.ErrAwaitingAnswer):
			// Suspended; the progress feed already carries the question.
		case err != nil:
			program.Send(tui.RunErrorMsg{Err: err})
		default:
			program.Send(tui.FinishedMsg{State: w})
		}
	}

	app := tui.NewApp(prompt, func(answer string) {
		go func() { report(orch.Answer(ctx, w, answer)) }()
	})
	program = tui.NewProgram(app)

	go func() {
		if w.Phase == models.PhaseClarifying && w.PendingQuestion != "" {
			// Resumed mid-suspension: surface the stored question instead
			// of re-entering the state machine.
			program.Send(tui.ProgressMsg{
				TaskID:    w.ID(),
				Phase:     w.Phase,
				StepIndex: w.CurrentStep,
				Question:  w.PendingQuestion,
			})
			return
		}
		report(orch.Run(ctx, w))
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running terminal view: %w", err)
	}
	return nil
}

// terminalLogPath keeps logs off stderr while the terminal view is live.
func terminalLogPath() string {
	dir := filepath.Join(".foreman", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "foreman.log")
}

// loadAttachments reads attachment files. Text files are carried verbatim,
// binary files base64-encoded.
func loadAttachments(paths []string) ([]models.Attachment, error) {
	var out []models.Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading attachment %s: %w", p, err)
		}
		att := models.Attachment{
			Name:      filepath.Base(p),
			MediaType: mime.TypeByExtension(filepath.Ext(p)),
		}
		if utf8.Valid(data) {
			if att.MediaType == "" {
				att.MediaType = "text/plain"
			}
			att.Data = string(data)
		} else {
			if att.MediaType == "" {
				att.MediaType = "application/octet-stream"
			}
			att.Data = base64.StdEncoding.EncodeToString(data)
		}
		out = append(out, att)
	}
	return out, nil
}
