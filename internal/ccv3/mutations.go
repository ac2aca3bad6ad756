package ccv3

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (b *Backend) setAppState(ctx context.Context, guid string, state capi.ApplicationState) (*appResource, error) {
	action := "stop"
	if state == capi.ApplicationStarted {
		action = "start"
	}

	var raw appResource

	if _, err := b.HTTP.DoJSON(ctx, &capihttp.Request{
		Method: http.MethodPost,
		Path:   ccbase.ResourcePath(pathApps, guid) + "/actions/" + action,
	}, &raw); err != nil {
		return nil, err
	}

	raw.Bind(b.Log)

	return &raw, nil
}

func (b *Backend) deleteApp(ctx context.Context, guid string) error {
	return b.deleteAndWait(ctx, ccbase.ResourcePath(pathApps, guid))
}

func (b *Backend) deleteServiceInstance(ctx context.Context, guid string) error {
	return b.deleteAndWait(ctx, ccbase.ResourcePath(pathServiceInstances, guid))
}

// deleteAndWait deletes path and, when the platform answers with a job,
// polls the job until it finishes.
func (b *Backend) deleteAndWait(ctx context.Context, path string) error {
	resp, err := b.HTTP.Delete(ctx, path)
	if err != nil {
		return err
	}

	location := resp.Headers.Get("Location")
	if resp.StatusCode != http.StatusAccepted || location == "" {
		return nil
	}

	_, err = b.pollJob(ctx, location)

	return err
}
