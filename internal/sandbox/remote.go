package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/pkg/models"
)

// RemoteRunner submits bundles to a sandbox execution service over HTTP.
// The service owns provisioning; this client only distinguishes a judged
// verdict from an infrastructure failure.
type RemoteRunner struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewRemoteRunner creates a client for the sandbox service at url.
// Timeouts come from the per-call context, not the HTTP client.
func NewRemoteRunner(url string, logger *zap.Logger) *RemoteRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteRunner{
		url:    url,
		client: &http.Client{},
		logger: logger,
	}
}

// runPayload is the wire request.
type runPayload struct {
	Artifacts   map[string]string `json:"artifacts"`
	TestCommand string            `json:"test_command"`
	Environment string            `json:"environment,omitempty"`
}

// runResponse is the wire response for a judged run.
type runResponse struct {
	Passed bool   `json:"passed"`
	Log    string `json:"log,omitempty"`
}

// Run implements Runner.
func (r *RemoteRunner) Run(ctx context.Context, req RunRequest) (models.Verdict, error) {
	body, err := json.Marshal(runPayload{
		Artifacts:   req.Artifacts,
		TestCommand: req.TestCommand,
		Environment: req.Environment,
	})
	if err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "encode run request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/run", bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "build run request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "sandbox unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "read sandbox response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return models.Verdict{}, &InfrastructureError{
			Reason: fmt.Sprintf("sandbox returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var out runResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return models.Verdict{}, &InfrastructureError{Reason: "decode sandbox response", Err: err}
	}

	r.logger.Debug("sandbox run complete", zap.Bool("passed", out.Passed))
	return models.Verdict{Passed: out.Passed, Log: out.Log}, nil
}

var _ Runner = (*RemoteRunner)(nil)
