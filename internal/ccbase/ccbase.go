// Package ccbase holds the request plumbing both Cloud Controller generations
// share: single-resource requests, endpoint bindings and auxiliary fetches.
// Page decoding differs per generation and stays in ccv2 and ccv3.
package ccbase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Bindable resources receive the logger their metadata is parsed with.
type Bindable interface {
	Bind(log capi.Logger)
}

// Ptr constrains a pointer to a bindable wire resource E.
type Ptr[E any] interface {
	*E
	Bindable
}

// Lister builds the listing of path filtered by query.
type Lister[E any] func(path string, query url.Values) fetch.PageFunc[*E]

// Conn is what a generation backend talks to the platform through.
type Conn struct {
	HTTP    *capihttp.Client
	Fetcher *fetch.Fetcher
	Log     capi.Logger
}

// ResourcePath joins a collection path and a guid.
func ResourcePath(base, guid string) string {
	return base + "/" + url.PathEscape(guid)
}

// GetOne returns the request for the single resource at path.
func GetOne[E any, R Ptr[E]](c *Conn, path string) func(context.Context) (*E, error) {
	return func(ctx context.Context) (*E, error) {
		out := R(new(E))
		if err := c.HTTP.GetJSON(ctx, path, nil, out); err != nil {
			return nil, err
		}

		out.Bind(c.Log)

		return (*E)(out), nil
	}
}

// Endpoint binds the collection at path to the fetch patterns. byName turns
// a name into the generation's server-side filter.
func Endpoint[E any, R Ptr[E], T any](c *Conn, kind, path string, list Lister[E], byName func(name string) url.Values, join fetch.Joiner[*E, T]) fetch.Resource[E, T] {
	return fetch.Resource[E, T]{
		Kind: kind,
		ByGUID: func(guid string) func(context.Context) (*E, error) {
			return GetOne[E, R](c, ResourcePath(path, guid))
		},
		ByName: func(name string) fetch.PageFunc[*E] {
			return list(path, byName(name))
		},
		All:  list(path, nil),
		Join: join,
	}
}

// AuxByGUID fetches auxiliary content under the retrier. An empty guid or a
// missing resource yields nil.
func AuxByGUID[E any, R Ptr[E]](ctx context.Context, c *Conn, path, guid string) (*E, error) {
	if guid == "" {
		return nil, nil
	}

	var out *E

	err := c.Fetcher.Retrier().Run(ctx, func(ctx context.Context) error {
		res, err := GetOne[E, R](c, ResourcePath(path, guid))(ctx)
		out = res

		return err
	}, http.StatusNotFound)

	return out, err
}

// AuxJSON fetches a document that is not a resource, such as an app summary
// or process stats. found is false when the document does not exist.
func (c *Conn) AuxJSON(ctx context.Context, path string, out interface{}) (bool, error) {
	found := false

	err := c.Fetcher.Retrier().Run(ctx, func(ctx context.Context) error {
		if err := c.HTTP.GetJSON(ctx, path, nil, out); err != nil {
			return err
		}

		found = true

		return nil
	}, http.StatusNotFound)

	return found, err
}
