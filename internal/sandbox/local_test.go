package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/forgeworks/foreman/pkg/models"
)

func TestLocalRunner_Pass(t *testing.T) {
	r := NewLocalRunner(nil)

	verdict, err := r.Run(context.Background(), RunRequest{
		Artifacts:   models.ArtifactSet{"hello.txt": "hello\n"},
		TestCommand: "grep -q hello hello.txt",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !verdict.Passed {
		t.Errorf("verdict failed: %s", verdict.Log)
	}
}

func TestLocalRunner_FailedVerdictCarriesLog(t *testing.T) {
	r := NewLocalRunner(nil)

	verdict, err := r.Run(context.Background(), RunRequest{
		Artifacts:   models.ArtifactSet{"hello.txt": "hello\n"},
		TestCommand: "echo broken assertion; exit 1",
	})
	if err != nil {
		t.Fatalf("a failing test is a verdict, not an error: %v", err)
	}
	if verdict.Passed {
		t.Error("verdict should be FAILED")
	}
	if !strings.Contains(verdict.Log, "broken assertion") {
		t.Errorf("log should carry test output, got %q", verdict.Log)
	}
}

func TestLocalRunner_MissingCommandIsInfrastructure(t *testing.T) {
	r := NewLocalRunner(nil)

	_, err := r.Run(context.Background(), RunRequest{
		Artifacts: models.ArtifactSet{"a.txt": "x"},
	})
	if !IsInfrastructureError(err) {
		t.Errorf("expected infrastructure error, got %v", err)
	}
}

func TestLocalRunner_TimeoutIsInfrastructure(t *testing.T) {
	r := NewLocalRunner(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, RunRequest{
		Artifacts:   models.ArtifactSet{"a.txt": "x"},
		TestCommand: "sleep 5",
	})
	if !IsInfrastructureError(err) {
		t.Errorf("expected infrastructure error on timeout, got %v", err)
	}
}

func TestLocalRunner_RejectsEscapingPaths(t *testing.T) {
	r := NewLocalRunner(nil)

	_, err := r.Run(context.Background(), RunRequest{
		Artifacts:   models.ArtifactSet{"../outside.txt": "x"},
		TestCommand: "true",
	})
	if !IsInfrastructureError(err) {
		t.Errorf("expected infrastructure error for escaping path, got %v", err)
	}
}

func TestLocalRunner_NestedArtifactPaths(t *testing.T) {
	r := NewLocalRunner(nil)

	verdict, err := r.Run(context.Background(), RunRequest{
		Artifacts: models.ArtifactSet{
			"pkg/util/util.txt": "content\n",
		},
		TestCommand: "test -f pkg/util/util.txt",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !verdict.Passed {
		t.Errorf("verdict failed: %s", verdict.Log)
	}
}
