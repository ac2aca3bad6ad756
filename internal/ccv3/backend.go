// Package ccv3 reads the flat resources of the v3 Cloud Controller API and
// derives domain values from them. Auxiliary content (an application's
// process, stack and space, a route's domain, ...) is fetched concurrently
// per resource before derivation.
package ccv3

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	"github.com/fivetwenty-io/cfops/internal/client"
	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Backend binds the v3 endpoints to the fetch patterns.
type Backend struct {
	ccbase.Conn

	perPage int

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

func WithLogger(l capi.Logger) Option {
	return func(b *Backend) {
		b.Log = capi.OrNop(l)
	}
}

// WithPerPage sets the page size of list requests. 0 leaves it to the server.
func WithPerPage(n int) Option {
	return func(b *Backend) {
		b.perPage = min(n, constants.MaxPerPage)
	}
}

// WithJobPolling sets how asynchronous jobs are awaited.
func WithJobPolling(interval, timeout time.Duration) Option {
	return func(b *Backend) {
		if interval > 0 {
			b.pollInterval = interval
		}

		if timeout > 0 {
			b.pollTimeout = timeout
		}
	}
}

func New(hc *capihttp.Client, f *fetch.Fetcher, opts ...Option) *Backend {
	b := &Backend{
		Conn:         ccbase.Conn{HTTP: hc, Fetcher: f, Log: capi.NopLogger{}},
		pollInterval: constants.DefaultJobPollInterval,
		pollTimeout:  constants.DefaultJobPollTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Client returns the facade served by this backend.
func (b *Backend) Client() *client.Client {
	f := b.Fetcher

	return client.New(capi.APIVersionV3, client.Set{
		Organizations: client.NewResources(f, b.organizations()),
		Spaces:        client.NewResources(f, b.spaces()),
		Stacks:        client.NewResources(f, b.stacks()),
		Domains:       client.NewResources(f, b.domains()),
		Routes:        client.NewResources(f, b.routes()),
		ServicePlans:  client.NewResources(f, b.servicePlans()),
		Applications: client.NewApplications(f, b.applications(), client.ApplicationEndpoints[appResource]{
			InSpace: func(spaceGUID string) fetch.PageFunc[*appResource] {
				return pages[appResource](b, pathApps, url.Values{"space_guids": {spaceGUID}})
			},
			SetState: b.setAppState,
			Delete:   b.deleteApp,
		}),
		ServiceInstances: client.NewServiceInstances(f, b.serviceInstances(), b.deleteServiceInstance),
		Builds: client.NewChildren(f, b.builds(), func(appGUID string) fetch.PageFunc[*buildResource] {
			return pages[buildResource](b, pathBuilds, url.Values{"app_guids": {appGUID}})
		}),
		Packages: client.NewChildren(f, b.packages(), func(appGUID string) fetch.PageFunc[*packageResource] {
			return pages[packageResource](b, pathPackages, url.Values{"app_guids": {appGUID}})
		}),
	})
}

// pages lists path. Later pages follow the next href verbatim.
func pages[E any, R ccbase.Ptr[E]](b *Backend, path string, query url.Values) fetch.PageFunc[*E] {
	return func(ctx context.Context, cursor string) (fetch.Page[*E], error) {
		var (
			resp listResponse[*E]
			err  error
		)

		if cursor == "" {
			q := url.Values{}
			for k, vs := range query {
				q[k] = vs
			}

			if b.perPage > 0 {
				q.Set("per_page", strconv.Itoa(b.perPage))
			}

			err = b.HTTP.GetJSON(ctx, path, q, &resp)
		} else {
			err = b.HTTP.GetJSON(ctx, cursor, nil, &resp)
		}

		if err != nil {
			return fetch.Page[*E]{}, err
		}

		for _, r := range resp.Resources {
			if r != nil {
				R(r).Bind(b.Log)
			}
		}

		page := fetch.Page[*E]{Resources: resp.Resources}
		if resp.Pagination.Next != nil {
			page.Next = resp.Pagination.Next.Href
		}

		return page, nil
	}
}

// endpoint binds a collection path to the fetch patterns.
func endpoint[E any, R ccbase.Ptr[E], T any](b *Backend, kind, path, nameFilter string, join fetch.Joiner[*E, T]) fetch.Resource[E, T] {
	return ccbase.Endpoint[E, R](&b.Conn, kind, path, func(path string, query url.Values) fetch.PageFunc[*E] {
		return pages[E, R](b, path, query)
	}, func(name string) url.Values {
		return url.Values{nameFilter: {name}}
	}, join)
}

// auxFirst returns the first resource of a filtered listing, or nil.
func auxFirst[E any, R ccbase.Ptr[E]](ctx context.Context, b *Backend, path string, query url.Values) (*E, error) {
	page, err := retry.Do(ctx, b.Fetcher.Retrier(), func(ctx context.Context) (fetch.Page[*E], error) {
		return pages[E, R](b, path, query)(ctx, "")
	})
	if err != nil || len(page.Resources) == 0 {
		return nil, err
	}

	return page.Resources[0], nil
}

// auxAll walks every page of a listing, each page under the retrier. A
// missing or degraded page yields nil rather than a partial listing.
func auxAll[E any, R ccbase.Ptr[E]](ctx context.Context, b *Backend, path string, query url.Values) ([]*E, error) {
	next := pages[E, R](b, path, query)

	var (
		all    []*E
		cursor string
	)

	for {
		page, ok, err := retry.Attempt(ctx, b.Fetcher.Retrier(), func(ctx context.Context) (fetch.Page[*E], error) {
			return next(ctx, cursor)
		}, http.StatusNotFound)
		if err != nil || !ok {
			return nil, err
		}

		all = append(all, page.Resources...)

		if page.Next == "" {
			return all, nil
		}

		cursor = page.Next
	}
}
