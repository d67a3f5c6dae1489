package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/internal/store"
	"github.com/forgeworks/foreman/pkg/models"
)

// ErrNotFound is returned when no workflow exists for a task id.
var ErrNotFound = errors.New("task not found")

// liveTask tracks one workflow goroutine.
type liveTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns task lifecycles: each accepted task runs in its own
// goroutine, strictly sequential within itself, concurrent with unrelated
// tasks. Reads go through the store so they always see the last committed
// transition.
type Manager struct {
	orch   *orchestrator.Orchestrator
	store  store.WorkflowStore
	logger *zap.Logger

	mu   sync.Mutex
	live map[string]*liveTask
}

// NewManager creates a task manager.
func NewManager(orch *orchestrator.Orchestrator, st store.WorkflowStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		orch:   orch,
		store:  st,
		logger: logger,
		live:   make(map[string]*liveTask),
	}
}

// Submit accepts a task request, persists the fresh workflow, and starts
// driving it. The task id is returned immediately.
func (m *Manager) Submit(req models.TaskRequest) (string, error) {
	w, err := m.orch.NewTask(req)
	if err != nil {
		return "", err
	}
	m.start(w, func(ctx context.Context) error {
		return m.orch.Run(ctx, w)
	})
	return w.ID(), nil
}

// Resume restarts every non-terminal workflow found in the store. Workflows
// suspended in CLARIFYING stay suspended; they resume when their answer
// arrives.
func (m *Manager) Resume() error {
	workflows, err := m.store.ListResumable()
	if err != nil {
		return err
	}
	for _, w := range workflows {
		if w.Phase == models.PhaseClarifying {
			m.logger.Info("workflow awaiting answer, left suspended",
				zap.String("task_id", w.ID()))
			continue
		}
		m.logger.Info("resuming workflow",
			zap.String("task_id", w.ID()),
			zap.String("phase", string(w.Phase)))
		w := w
		m.start(w, func(ctx context.Context) error {
			return m.orch.Run(ctx, w)
		})
	}
	return nil
}

// Answer delivers the user's clarification answer and resumes the workflow.
// The lock is held across the validation and the start so two concurrent
// answers cannot both pass the live-map check and race two Run goroutines
// over the same workflow.
func (m *Manager) Answer(id, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.live[id]; running {
		return fmt.Errorf("task %s is still running", id)
	}

	w, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if w == nil {
		return ErrNotFound
	}
	if w.Phase != models.PhaseClarifying {
		return fmt.Errorf("task %s is %s, not awaiting an answer", id, w.Phase)
	}

	m.startLocked(w, func(ctx context.Context) error {
		return m.orch.Answer(ctx, w, answer)
	})
	return nil
}

// Cancel aborts a task. A running task is cancelled at its next state
// boundary; a suspended one is failed directly.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	lt, running := m.live[id]
	m.mu.Unlock()
	if running {
		lt.cancel()
		return nil
	}

	w, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if w == nil {
		return ErrNotFound
	}
	if w.Phase.Terminal() {
		return fmt.Errorf("task %s already finished as %s", id, w.Phase)
	}

	w.Failure = &models.Failure{
		Kind:      models.FailureCancelled,
		Phase:     w.Phase,
		StepIndex: w.CurrentStep,
		Detail:    "cancelled by caller",
	}
	w.Phase = models.PhaseFailed
	w.UpdatedAt = time.Now().UTC()
	return m.store.Save(w)
}

// Get loads the last committed state of a task.
func (m *Manager) Get(id string) (*models.WorkflowState, error) {
	w, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNotFound
	}
	return w, nil
}

// List returns summaries of all known tasks.
func (m *Manager) List() ([]store.WorkflowSummary, error) {
	return m.store.List()
}

// Shutdown cancels every running task and waits for their goroutines, up
// to the context deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	pending := make([]*liveTask, 0, len(m.live))
	for _, lt := range m.live {
		lt.cancel()
		pending = append(pending, lt)
	}
	m.mu.Unlock()

	for _, lt := range pending {
		select {
		case <-lt.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// start launches the run function in a task goroutine and tracks it until
// it returns.
func (m *Manager) start(w *models.WorkflowState, run func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startLocked(w, run)
}

// startLocked registers the task and launches its goroutine. The caller
// holds m.mu.
func (m *Manager) startLocked(w *models.WorkflowState, run func(context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	lt := &liveTask{cancel: cancel, done: make(chan struct{})}
	m.live[w.ID()] = lt

	go func() {
		defer close(lt.done)
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.live, w.ID())
			m.mu.Unlock()
		}()

		err := run(ctx)
		switch {
		case errors.Is(err, orchestrator.ErrAwaitingAnswer):
			m.logger.Info("workflow suspended for clarification",
				zap.String("task_id", w.ID()),
				zap.String("question", w.PendingQuestion))
		case err != nil:
			m.logger.Error("workflow run failed",
				zap.String("task_id", w.ID()), zap.Error(err))
		default:
			m.logger.Info("workflow finished",
				zap.String("task_id", w.ID()),
				zap.String("phase", string(w.Phase)))
		}
	}()
}
