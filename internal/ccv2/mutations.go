package ccv2

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (b *Backend) setAppState(ctx context.Context, guid string, state capi.ApplicationState) (*appResource, error) {
	var raw appResource

	if _, err := b.HTTP.DoJSON(ctx, &capihttp.Request{
		Method: http.MethodPut,
		Path:   ccbase.ResourcePath(pathApps, guid),
		Body:   map[string]string{"state": string(state)},
	}, &raw); err != nil {
		return nil, err
	}

	raw.Bind(b.Log)

	return &raw, nil
}

func (b *Backend) deleteApp(ctx context.Context, guid string) error {
	_, err := b.HTTP.Delete(ctx, ccbase.ResourcePath(pathApps, guid))

	return err
}

// deleteServiceInstance lets the broker finish asynchronously and waits until
// the instance is gone or its delete operation settles.
func (b *Backend) deleteServiceInstance(ctx context.Context, guid string) error {
	resp, err := b.HTTP.Do(ctx, &capihttp.Request{
		Method: http.MethodDelete,
		Path:   ccbase.ResourcePath(pathServiceInstances, guid),
		Query:  url.Values{"accepts_incomplete": {"true"}},
	})
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusAccepted {
		return nil
	}

	return b.awaitDeletion(ctx, guid)
}

func (b *Backend) awaitDeletion(ctx context.Context, guid string) error {
	pollCtx, cancel := context.WithTimeout(ctx, b.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	path := ccbase.ResourcePath(pathServiceInstances, guid)

	for {
		var raw serviceInstanceResource

		err := b.HTTP.GetJSON(pollCtx, path, nil, &raw)

		switch {
		case capi.IsNotFound(err):
			return nil
		case err != nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return fmt.Errorf("%w: deleting service instance %s", capi.ErrJobTimeout, guid)
		case err != nil:
			return err
		}

		op := raw.Entity.LastOperation
		if op != nil && op.State == operationState(capi.OperationFailed) {
			return fmt.Errorf("%w: %s", capi.ErrJobFailed, op.Description)
		}

		if op != nil && op.State == operationState(capi.OperationSucceeded) {
			return nil
		}

		b.Log.Debug("waiting for service instance deletion", map[string]interface{}{
			"service_instance": guid,
		})

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-pollCtx.Done():
			return fmt.Errorf("%w: deleting service instance %s", capi.ErrJobTimeout, guid)
		case <-ticker.C:
		}
	}
}
