package ccv3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (b *Backend) getJob(ctx context.Context, href string) (*job, error) {
	var j job
	if err := b.HTTP.GetJSON(ctx, href, nil, &j); err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	j.Bind(b.Log)

	return &j, nil
}

// pollJob waits until the job at href reaches a terminal state.
func (b *Backend) pollJob(ctx context.Context, href string) (*job, error) {
	pollCtx, cancel := context.WithTimeout(ctx, b.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		j, err := b.getJob(pollCtx, href)

		switch {
		case err != nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, fmt.Errorf("%w: %s", capi.ErrJobTimeout, href)
		case err != nil:
			return nil, err
		case j.State == constants.JobStateComplete:
			return j, nil
		case j.State == constants.JobStateFailed:
			return j, fmt.Errorf("%w: %s", capi.ErrJobFailed, formatJobErrors(j))
		}

		b.Log.Debug("waiting for job", map[string]interface{}{
			"job":       j.GUID,
			"operation": j.Operation,
			"state":     j.State,
		})

		select {
		case <-ctx.Done():
			return j, context.Cause(ctx)
		case <-pollCtx.Done():
			return j, fmt.Errorf("%w: %s is %s", capi.ErrJobTimeout, j.Operation, j.State)
		case <-ticker.C:
		}
	}
}

func formatJobErrors(j *job) string {
	if len(j.Errors) == 0 {
		return "no error details available"
	}

	details := make([]string, 0, len(j.Errors))
	for _, e := range j.Errors {
		details = append(details, e.Detail)
	}

	return strings.Join(details, "; ")
}
