package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/pkg/models"
)

// Caller wraps an Invoker with the mandatory per-call timeout and the
// bounded schema-retry policy: a schema-invalid result, a timeout, or a
// transport error re-requests the same call up to Retries additional
// times, independently of any business loop counter. Exhaustion surfaces
// as a fatal tooling error.
type Caller struct {
	inner   Invoker
	timeout time.Duration
	retries int
	onRetry func()
	logger  *zap.Logger
}

// NewCaller creates a retrying caller. onRetry, if non-nil, is invoked once
// per retry so the workflow can tally schema retries; a nil logger is
// replaced with a no-op.
func NewCaller(inner Invoker, timeout time.Duration, retries int, onRetry func(), logger *zap.Logger) *Caller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{
		inner:   inner,
		timeout: timeout,
		retries: retries,
		onRetry: onRetry,
		logger:  logger,
	}
}

// call runs fn with a fresh timeout per attempt. Cancellation of the
// parent context is never retried.
func call[T any](c *Caller, ctx context.Context, role Role, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if attempt > 0 {
			c.logger.Warn("retrying agent call",
				zap.String("role", string(role)),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
			if c.onRetry != nil {
				c.onRetry()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result, err := fn(callCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%s agent failed after %d attempts: %w", role, c.retries+1, lastErr)
}

// Route implements Invoker.
func (c *Caller) Route(ctx context.Context, prompt string) (RouteDecision, error) {
	return call(c, ctx, RoleRouting, func(ctx context.Context) (RouteDecision, error) {
		return c.inner.Route(ctx, prompt)
	})
}

// Clarify implements Invoker.
func (c *Caller) Clarify(ctx context.Context, prompt string, history []models.Exchange) (string, error) {
	return call(c, ctx, RoleClarification, func(ctx context.Context) (string, error) {
		return c.inner.Clarify(ctx, prompt, history)
	})
}

// Plan implements Invoker.
func (c *Caller) Plan(ctx context.Context, prompt string) ([]string, error) {
	return call(c, ctx, RolePlanning, func(ctx context.Context) ([]string, error) {
		return c.inner.Plan(ctx, prompt)
	})
}

// Code implements Invoker.
func (c *Caller) Code(ctx context.Context, req CodingRequest) (*CodingResult, error) {
	return call(c, ctx, RoleCoding, func(ctx context.Context) (*CodingResult, error) {
		return c.inner.Code(ctx, req)
	})
}

// Review implements Invoker.
func (c *Caller) Review(ctx context.Context, stepDescription string, artifacts models.ArtifactSet) (models.ReviewVerdict, error) {
	return call(c, ctx, RoleReview, func(ctx context.Context) (models.ReviewVerdict, error) {
		return c.inner.Review(ctx, stepDescription, artifacts)
	})
}

// Analyze implements Invoker.
func (c *Caller) Analyze(ctx context.Context, metrics models.RunMetrics, outcome string) (string, error) {
	return call(c, ctx, RoleAnalysis, func(ctx context.Context) (string, error) {
		return c.inner.Analyze(ctx, metrics, outcome)
	})
}

var _ Invoker = (*Caller)(nil)
