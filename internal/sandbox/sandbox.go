// Package sandbox provides the execution interface for running generated
// code against its test definition in an isolated environment.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeworks/foreman/pkg/models"
)

// RunRequest is one sandbox execution: a complete artifact bundle plus the
// test definition that decides pass or fail.
type RunRequest struct {
	// Artifacts is the code bundle to materialize.
	Artifacts models.ArtifactSet
	// TestCommand is the shell command whose exit status is the verdict.
	TestCommand string
	// Environment is an opaque descriptor of the execution environment.
	Environment string
}

// Runner executes a code bundle and returns a pass/fail verdict with logs.
// A FAILED verdict is an expected business outcome; an inability to execute
// at all is reported as *InfrastructureError. Implementations must be safe
// for concurrent invocation by unrelated workflows and must honor the
// caller's context deadline.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (models.Verdict, error)
}

// InfrastructureError means the execution environment could not be
// provisioned or the call did not complete. It is not a code defect: the
// caller retries it on a separate budget without touching the functional
// attempts counter.
type InfrastructureError struct {
	// Reason describes what went wrong.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *InfrastructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sandbox infrastructure error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sandbox infrastructure error: %s", e.Reason)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// IsInfrastructureError reports whether err is (or wraps) an *InfrastructureError.
func IsInfrastructureError(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
