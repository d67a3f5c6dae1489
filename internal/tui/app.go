// Package tui renders workflow progress in the terminal for foreman run:
// a live transition feed, an input prompt when the workflow suspends for
// clarification, and the final report.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/pkg/models"
)

// ProgressMsg is one orchestrator transition forwarded into the app.
type ProgressMsg orchestrator.Event

// FinishedMsg carries the terminal workflow state.
type FinishedMsg struct {
	State *models.WorkflowState
}

// RunErrorMsg reports a run that stopped for a process-level reason.
type RunErrorMsg struct {
	Err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// App is the bubbletea model for one workflow run.
type App struct {
	prompt   string
	input    textinput.Model
	lines    []string
	question string
	awaiting bool
	finished bool
	state    *models.WorkflowState
	runErr   error
	width    int

	// onAnswer delivers the typed clarification answer back to the
	// workflow; set by the caller before the program starts.
	onAnswer func(answer string)
}

// NewApp creates the run view for the given task prompt.
func NewApp(prompt string, onAnswer func(string)) *App {
	ti := textinput.New()
	ti.Placeholder = "Type your answer and press Enter..."
	ti.CharLimit = 500
	ti.Width = 60

	return &App{
		prompt:   prompt,
		input:    ti,
		onAnswer: onAnswer,
		width:    80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "enter":
			if a.awaiting {
				answer := a.input.Value()
				if answer == "" {
					return a, nil
				}
				a.input.Reset()
				a.input.Blur()
				a.awaiting = false
				a.lines = append(a.lines, fmt.Sprintf("  answer: %s", answer))
				if a.onAnswer != nil {
					a.onAnswer(answer)
				}
				return a, nil
			}
		}
		if a.awaiting {
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.input.Width = msg.Width - 6

	case ProgressMsg:
		a.lines = append(a.lines, formatTransition(orchestrator.Event(msg)))
		if msg.Question != "" && msg.Phase == models.PhaseClarifying {
			a.question = msg.Question
			a.awaiting = true
			return a, a.input.Focus()
		}
		return a, nil

	case FinishedMsg:
		a.finished = true
		a.state = msg.State
		return a, tea.Quit

	case RunErrorMsg:
		a.finished = true
		a.runErr = msg.Err
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	out := titleStyle.Render("foreman") + " " + a.prompt + "\n\n"
	for _, line := range a.lines {
		out += line + "\n"
	}

	if a.awaiting {
		out += "\n" + questionStyle.Render("? "+a.question) + "\n"
		out += inputBoxStyle.Width(a.width - 2).Render(a.input.View()) + "\n"
	}

	if a.finished {
		if a.runErr != nil {
			out += "\nrun stopped: " + a.runErr.Error() + "\n"
		}
		if a.state != nil {
			out += "\n" + RenderReport(a.state) + "\n"
		}
	}
	return out
}

// formatTransition renders one transition line for the feed.
func formatTransition(ev orchestrator.Event) string {
	label := string(ev.Phase)
	if ev.StepIndex >= 0 {
		label = fmt.Sprintf("%s (step %d)", label, ev.StepIndex+1)
	}
	if ev.Detail != "" {
		label += ": " + ev.Detail
	}
	return phaseStyle.Render("→ " + label)
}

// NewProgram wraps the app in a bubbletea program.
func NewProgram(app *App) *tea.Program {
	return tea.NewProgram(app)
}
