package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cfops/internal/fetch"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Children reads resources that belong to an application, such as builds and packages.
type Children[R, T any] struct {
	fetcher  *fetch.Fetcher
	resource fetch.Resource[R, *T]
	forApp   func(appGUID string) fetch.PageFunc[*R]
}

var (
	_ capi.BuildsClient   = (*Children[struct{}, capi.Build])(nil)
	_ capi.PackagesClient = (*Children[struct{}, capi.Package])(nil)
)

func NewChildren[R, T any](f *fetch.Fetcher, resource fetch.Resource[R, *T], forApp func(string) fetch.PageFunc[*R]) *Children[R, T] {
	return &Children[R, T]{fetcher: f, resource: resource, forApp: forApp}
}

func (c *Children[R, T]) GetByGUID(ctx context.Context, guid string) (*T, error) {
	return c.resource.Get(ctx, c.fetcher, guid, true)
}

func (c *Children[R, T]) ListForApplication(ctx context.Context, appGUID string) ([]*T, error) {
	items, err := c.resource.ListFrom(ctx, c.fetcher, c.forApp(appGUID))
	if err != nil {
		return nil, fmt.Errorf("listing %ss of application %s: %w", c.resource.Kind, appGUID, err)
	}

	return items, nil
}

// unsupported answers every call with capi.ErrUnsupportedAPIVersion.
type unsupported[T any] struct {
	kind    string
	version capi.APIVersion
}

func (u unsupported[T]) err() error {
	return fmt.Errorf("%ss on %s: %w", u.kind, u.version, capi.ErrUnsupportedAPIVersion)
}

func (u unsupported[T]) GetByGUID(context.Context, string) (*T, error) {
	return nil, u.err()
}

func (u unsupported[T]) ListForApplication(context.Context, string) ([]*T, error) {
	return nil, u.err()
}

func UnsupportedBuilds(version capi.APIVersion) capi.BuildsClient {
	return unsupported[capi.Build]{kind: "build", version: version}
}

func UnsupportedPackages(version capi.APIVersion) capi.PackagesClient {
	return unsupported[capi.Package]{kind: "package", version: version}
}
