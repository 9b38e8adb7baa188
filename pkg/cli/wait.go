package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feldera-grafana-plugin/pkg/feldera"

	"github.com/avast/retry-go/v4"
)

// pollInterval is how often pipeline status is polled while waiting.
var pollInterval = 2 * time.Second

// errNotReady marks a pipeline that has not reached the awaited state yet.
var errNotReady = errors.New("pipeline not ready")

// readiness reports whether p reached the awaited state. A non-nil error
// means it never will.
type readiness func(p *feldera.Pipeline) (bool, error)

func compiled(p *feldera.Pipeline) (bool, error) {
	if p.HasProgramError() {
		return false, fmt.Errorf("program status %s", p.ProgramStatus)
	}
	return p.IsCompiled(), nil
}

func running(p *feldera.Pipeline) (bool, error) {
	if p.DeploymentStatus == feldera.DeploymentStatusFailed {
		return false, fmt.Errorf("deployment status %s", p.DeploymentStatus)
	}
	return p.IsRunning(), nil
}

// waitFor polls the pipeline until ready accepts it or timeout elapses.
func waitFor(ctx context.Context, c feldera.PipelineManager, name string, timeout time.Duration, ready readiness) (*feldera.Pipeline, error) {
	attempts := uint(timeout/pollInterval) + 1

	return retry.DoWithData(
		func() (*feldera.Pipeline, error) {
			p, err := c.GetPipeline(ctx, name)
			if err != nil {
				return nil, err
			}
			ok, err := ready(p)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			if !ok {
				return nil, fmt.Errorf("%w: program %s, deployment %s", errNotReady, p.ProgramStatus, p.DeploymentStatus)
			}
			return p, nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
