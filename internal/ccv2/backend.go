// Package ccv2 reads the entity-envelope resources of the v2 Cloud Controller
// API and derives domain values from them.
package ccv2

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	"github.com/fivetwenty-io/cfops/internal/client"
	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// maxPerPage is the largest page the v2 API serves.
const maxPerPage = 100

// Backend binds the v2 endpoints to the fetch patterns.
type Backend struct {
	ccbase.Conn

	perPage int

	pollInterval time.Duration
	pollTimeout  time.Duration
}

type Option func(*Backend)

func WithLogger(l capi.Logger) Option {
	return func(b *Backend) {
		b.Log = capi.OrNop(l)
	}
}

// WithPerPage sets the page size of list requests, capped at 100.
func WithPerPage(n int) Option {
	return func(b *Backend) {
		b.perPage = min(n, maxPerPage)
	}
}

// WithOperationPolling sets how asynchronous service operations are awaited.
func WithOperationPolling(interval, timeout time.Duration) Option {
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

// Client returns the facade served by this backend. Builds and packages are
// not available on v2.
func (b *Backend) Client() *client.Client {
	f := b.Fetcher

	return client.New(capi.APIVersionV2, client.Set{
		Organizations: client.NewResources(f, b.organizations()),
		Spaces:        client.NewResources(f, b.spaces()),
		Stacks:        client.NewResources(f, b.stacks()),
		Domains:       client.NewResources(f, b.domains()),
		Routes:        client.NewResources(f, b.routes()),
		ServicePlans:  client.NewResources(f, b.servicePlans()),
		Applications: client.NewApplications(f, b.applications(), client.ApplicationEndpoints[appResource]{
			InSpace: func(spaceGUID string) fetch.PageFunc[*appResource] {
				return pages[appResource](b, pathApps, filter("space_guid", spaceGUID))
			},
			SetState: b.setAppState,
			Delete:   b.deleteApp,
		}),
		ServiceInstances: client.NewServiceInstances(f, b.serviceInstances(), b.deleteServiceInstance),
	})
}

// filter builds the v2 "q=field:value" query.
func filter(field, value string) url.Values {
	return url.Values{"q": {field + ":" + value}}
}

// pages lists path. Later pages follow next_url verbatim.
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
				q.Set("results-per-page", strconv.Itoa(b.perPage))
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
		if resp.NextURL != nil {
			page.Next = *resp.NextURL
		}

		return page, nil
	}
}

func endpoint[E any, R ccbase.Ptr[E], T any](b *Backend, kind, path, nameField string, join fetch.Joiner[*E, T]) fetch.Resource[E, T] {
	return ccbase.Endpoint[E, R](&b.Conn, kind, path, func(path string, query url.Values) fetch.PageFunc[*E] {
		return pages[E, R](b, path, query)
	}, func(name string) url.Values {
		return filter(nameField, name)
	}, join)
}
