package fetch

import "context"

// Resource binds the endpoints of one entity kind to the fetch patterns.
// R is the raw wire resource and T the derived domain value.
type Resource[R, T any] struct {
	Kind string
	// ByGUID returns the single-resource request for guid.
	ByGUID func(guid string) func(context.Context) (*R, error)
	// ByName returns the listing filtered server side by name.
	ByName func(name string) PageFunc[*R]
	// All lists every resource of the kind.
	All  PageFunc[*R]
	Join Joiner[*R, T]
}

// Get fetches the resource identified by guid.
func (r Resource[R, T]) Get(ctx context.Context, f *Fetcher, guid string, required bool) (T, error) {
	return One(ctx, f, r.Kind, guid, r.ByGUID(guid), r.Join, required)
}

// Lookup fetches the first resource named name.
func (r Resource[R, T]) Lookup(ctx context.Context, f *Fetcher, name string, required bool) (T, error) {
	return First(ctx, f, r.Kind, name, r.ByName(name), r.Join, required)
}

// List fetches every resource of the kind.
func (r Resource[R, T]) List(ctx context.Context, f *Fetcher) ([]T, error) {
	return List(ctx, f, r.Kind, r.All, r.Join)
}

// ListFrom fetches the resources of another listing of the same kind.
func (r Resource[R, T]) ListFrom(ctx context.Context, f *Fetcher, pages PageFunc[*R]) ([]T, error) {
	return List(ctx, f, r.Kind, pages, r.Join)
}
