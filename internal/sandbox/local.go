package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/pkg/models"
)

// LocalRunner materializes the artifact bundle in a throwaway directory
// and runs the test command through the shell. It is the development-mode
// sandbox; remote deployments use RemoteRunner.
type LocalRunner struct {
	logger *zap.Logger
}

// NewLocalRunner creates a local runner. A nil logger is replaced with a no-op.
func NewLocalRunner(logger *zap.Logger) *LocalRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalRunner{logger: logger}
}

// Run implements Runner. Setup problems (temp dir, artifact writes, shell
// missing) are infrastructure errors; a non-zero test exit is a FAILED
// verdict carrying the combined output.
func (r *LocalRunner) Run(ctx context.Context, req RunRequest) (models.Verdict, error) {
	if req.TestCommand == "" {
		return models.Verdict{}, &InfrastructureError{Reason: "no test command supplied"}
	}

	workDir, err := os.MkdirTemp("", "foreman-sandbox-*")
	if err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "create work directory", Err: err}
	}
	defer os.RemoveAll(workDir)

	for name, content := range req.Artifacts {
		path := filepath.Join(workDir, filepath.Clean(name))
		if !strings.HasPrefix(path, workDir+string(os.PathSeparator)) {
			return models.Verdict{}, &InfrastructureError{Reason: fmt.Sprintf("artifact path %q escapes work directory", name)}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return models.Verdict{}, &InfrastructureError{Reason: "create artifact directory", Err: err}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return models.Verdict{}, &InfrastructureError{Reason: "write artifact", Err: err}
		}
	}

	r.logger.Debug("running sandbox test",
		zap.String("work_dir", workDir),
		zap.String("command", req.TestCommand),
		zap.Int("artifacts", len(req.Artifacts)))

	cmd := exec.CommandContext(ctx, "sh", "-c", req.TestCommand)
	cmd.Dir = workDir
	output, err := cmd.CombinedOutput()

	if ctx.Err() != nil {
		// The run was cut off, not judged.
		return models.Verdict{}, &InfrastructureError{Reason: "test run timed out", Err: ctx.Err()}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return models.Verdict{Passed: false, Log: string(output)}, nil
		}
		return models.Verdict{}, &InfrastructureError{Reason: "start test command", Err: err}
	}

	return models.Verdict{Passed: true, Log: string(output)}, nil
}

var _ Runner = (*LocalRunner)(nil)
