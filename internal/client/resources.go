package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Resources implements capi.ResourceClient over one entity binding.
type Resources[R, T any] struct {
	fetcher  *fetch.Fetcher
	resource fetch.Resource[R, *T]
}

func NewResources[R, T any](f *fetch.Fetcher, resource fetch.Resource[R, *T]) *Resources[R, T] {
	return &Resources[R, T]{fetcher: f, resource: resource}
}

// Get returns the resource named name or a *capi.NotFoundError.
func (c *Resources[R, T]) Get(ctx context.Context, name string) (*T, error) {
	return c.Lookup(ctx, name, true)
}

func (c *Resources[R, T]) Lookup(ctx context.Context, name string, required bool) (*T, error) {
	return c.resource.Lookup(ctx, c.fetcher, name, required)
}

func (c *Resources[R, T]) GetByGUID(ctx context.Context, guid string) (*T, error) {
	return c.resource.Get(ctx, c.fetcher, guid, true)
}

func (c *Resources[R, T]) List(ctx context.Context) ([]*T, error) {
	items, err := c.resource.List(ctx, c.fetcher)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", c.resource.Kind, err)
	}

	return items, nil
}

// ApplicationEndpoints are the generation-specific application calls.
type ApplicationEndpoints[R any] struct {
	InSpace  func(spaceGUID string) fetch.PageFunc[*R]
	SetState func(ctx context.Context, guid string, state capi.ApplicationState) (*R, error)
	Delete   func(ctx context.Context, guid string) error
}

// Applications implements capi.ApplicationsClient.
type Applications[R any] struct {
	*Resources[R, capi.Application]

	endpoints ApplicationEndpoints[R]
}

var _ capi.ApplicationsClient = (*Applications[struct{}])(nil)

func NewApplications[R any](f *fetch.Fetcher, resource fetch.Resource[R, *capi.Application], endpoints ApplicationEndpoints[R]) *Applications[R] {
	return &Applications[R]{Resources: NewResources(f, resource), endpoints: endpoints}
}

func (c *Applications[R]) ListInSpace(ctx context.Context, spaceGUID string) ([]*capi.Application, error) {
	apps, err := c.resource.ListFrom(ctx, c.fetcher, c.endpoints.InSpace(spaceGUID))
	if err != nil {
		return nil, fmt.Errorf("listing applications in space %s: %w", spaceGUID, err)
	}

	return apps, nil
}

func (c *Applications[R]) Start(ctx context.Context, guid string) (*capi.Application, error) {
	return c.transition(ctx, guid, capi.ApplicationStarted)
}

func (c *Applications[R]) Stop(ctx context.Context, guid string) (*capi.Application, error) {
	return c.transition(ctx, guid, capi.ApplicationStopped)
}

func (c *Applications[R]) transition(ctx context.Context, guid string, state capi.ApplicationState) (*capi.Application, error) {
	raw, err := retry.Do(ctx, c.fetcher.Retrier(), func(ctx context.Context) (*R, error) {
		return c.endpoints.SetState(ctx, guid, state)
	})
	if err != nil {
		return nil, fmt.Errorf("setting application %s to %s: %w", guid, state, err)
	}

	if raw == nil {
		return nil, nil
	}

	d, err := c.resource.Join(ctx, raw)
	if err != nil {
		return nil, err
	}

	return derive.Nullable(d), nil
}

// Delete removes the application. An application that is already gone is not an error.
func (c *Applications[R]) Delete(ctx context.Context, guid string) error {
	err := c.fetcher.Retrier().Run(ctx, func(ctx context.Context) error {
		return c.endpoints.Delete(ctx, guid)
	}, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("deleting application %s: %w", guid, err)
	}

	return nil
}

// ServiceInstances implements capi.ServiceInstancesClient.
type ServiceInstances[R any] struct {
	*Resources[R, capi.ServiceInstance]

	remove func(ctx context.Context, guid string) error
}

var _ capi.ServiceInstancesClient = (*ServiceInstances[struct{}])(nil)

func NewServiceInstances[R any](f *fetch.Fetcher, resource fetch.Resource[R, *capi.ServiceInstance], remove func(context.Context, string) error) *ServiceInstances[R] {
	return &ServiceInstances[R]{Resources: NewResources(f, resource), remove: remove}
}

func (c *ServiceInstances[R]) Delete(ctx context.Context, guid string) error {
	err := c.fetcher.Retrier().Run(ctx, func(ctx context.Context) error {
		return c.remove(ctx, guid)
	}, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("deleting service instance %s: %w", guid, err)
	}

	return nil
}
