// Package fetch retrieves platform resources and turns them into domain values.
//
// Single fetches and name lookups resolve one primary resource, join its
// auxiliary content and derive it. List fetches walk the platform pagination
// cursor sequentially while the auxiliary joins of already received elements
// run concurrently. Output order always matches the order the platform
// reported. Every primary request goes through the Retrier, so a failure in
// the middle of pagination is retried from the failing page.
//
// When the Retrier degrades a primary request in fail-safe mode, the fetch
// yields no result and no error: a nil value for One and First, whether or
// not the resource is required, and a nil slice for List.
package fetch

import (
	"context"
	"time"

	"github.com/hashicorp/go-metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/internal/telemetry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Page is one page of raw resources. An empty Next means the listing is exhausted.
type Page[R any] struct {
	Resources []R
	Next      string
}

// PageFunc requests the page at cursor. The empty cursor is the first page.
type PageFunc[R any] func(ctx context.Context, cursor string) (Page[R], error)

// Joiner fetches the auxiliary content of raw and returns a derivable holding
// both. It returns only once every auxiliary fetch has completed.
type Joiner[R, T any] func(ctx context.Context, raw R) (derive.Derivable[T], error)

// Direct is the Joiner of a raw resource that needs no auxiliary content.
func Direct[T any, R derive.Derivable[T]]() Joiner[R, T] {
	return func(_ context.Context, raw R) (derive.Derivable[T], error) {
		return raw, nil
	}
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency bounds the element joins in flight per list fetch. 0 is unbounded.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.limit = n
	}
}

func WithLogger(l capi.Logger) Option {
	return func(f *Fetcher) {
		f.log = capi.OrNop(l)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = telemetry.Metrics(m)
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Fetcher) {
		f.tracer = telemetry.Tracer(tp)
	}
}

// Fetcher holds the policy shared by all fetches of one client.
type Fetcher struct {
	retrier *retry.Retrier
	limit   int
	log     capi.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New builds a Fetcher whose primary requests run under r.
func New(r *retry.Retrier, opts ...Option) *Fetcher {
	f := &Fetcher{
		retrier: r,
		log:     capi.NopLogger{},
		metrics: telemetry.Metrics(nil),
		tracer:  telemetry.Tracer(nil),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Retrier returns the retrier primary requests run under.
func (f *Fetcher) Retrier() *retry.Retrier {
	return f.retrier
}

func (f *Fetcher) start(ctx context.Context, name, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span, []metrics.Label) {
	attrs = append(attrs, attribute.String("cfops.kind", kind))
	ctx, span := f.tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, span, []metrics.Label{telemetry.LabelKind.M(kind), telemetry.LabelOperation.M(name)}
}

func (f *Fetcher) finish(span trace.Span, labels []metrics.Label, start time.Time, err error) {
	f.metrics.MeasureSinceWithLabels(telemetry.MetricFetchDuration, start, labels)

	if err != nil {
		f.metrics.IncrCounterWithLabels(telemetry.MetricFetchErrorCount, 1, labels)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

func (f *Fetcher) degraded(kind, key string) {
	f.log.Warn("fetch degraded to an empty result", map[string]interface{}{
		"kind": kind,
		"key":  key,
	})
}

func notFound[T any](kind, key string, required bool) (T, error) {
	var zero T
	if required {
		return zero, &capi.NotFoundError{Kind: kind, Key: key}
	}

	return zero, nil
}

// One fetches the resource identified by key. A nil result or a 404 is
// reported as *capi.NotFoundError when required, and as the zero value otherwise.
func One[R, T any](ctx context.Context, f *Fetcher, kind, key string, get func(context.Context) (*R, error), join Joiner[*R, T], required bool) (result T, err error) {
	ctx, span, labels := f.start(ctx, "fetch.one", kind, attribute.String("cfops.key", key))
	defer func(start time.Time) { f.finish(span, labels, start, err) }(time.Now())

	raw, ok, err := retry.Attempt(ctx, f.retrier, get)
	if err != nil {
		if capi.IsNotFound(err) {
			return notFound[T](kind, key, required)
		}

		return result, err
	}

	if !ok {
		f.degraded(kind, key)

		return result, nil
	}

	if raw == nil {
		return notFound[T](kind, key, required)
	}

	d, err := join(ctx, raw)
	if err != nil {
		return result, err
	}

	return derive.Nullable(d), nil
}

// First returns the first resource of the listing, which is expected to be
// filtered server side by key.
func First[R, T any](ctx context.Context, f *Fetcher, kind, key string, pages PageFunc[R], join Joiner[R, T], required bool) (result T, err error) {
	ctx, span, labels := f.start(ctx, "fetch.first", kind, attribute.String("cfops.key", key))
	defer func(start time.Time) { f.finish(span, labels, start, err) }(time.Now())

	page, ok, err := retry.Attempt(ctx, f.retrier, func(ctx context.Context) (Page[R], error) {
		return pages(ctx, "")
	})
	if err != nil {
		return result, err
	}

	if !ok {
		f.degraded(kind, key)

		return result, nil
	}

	f.metrics.IncrCounterWithLabels(telemetry.MetricFetchPageCount, 1, labels)

	if len(page.Resources) == 0 {
		return notFound[T](kind, key, required)
	}

	if len(page.Resources) > 1 {
		f.log.Debug("lookup matched several resources, using the first", map[string]interface{}{
			"kind":    kind,
			"key":     key,
			"matches": len(page.Resources),
		})
	}

	d, err := join(ctx, page.Resources[0])
	if err != nil {
		return result, err
	}

	return derive.Nullable(d), nil
}

// List fetches every page and returns the derived elements in platform order.
// An empty listing yields an empty, non-nil slice and a degraded one yields nil.
func List[R, T any](ctx context.Context, f *Fetcher, kind string, pages PageFunc[R], join Joiner[R, T]) (result []T, err error) {
	ctx, span, labels := f.start(ctx, "fetch.list", kind)
	defer func(start time.Time) { f.finish(span, labels, start, err) }(time.Now())

	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	var (
		slots  []*T
		cursor string
		count  int
	)

	for {
		page, ok, err := retry.Attempt(gctx, f.retrier, func(ctx context.Context) (Page[R], error) {
			return pages(ctx, cursor)
		})
		if err != nil {
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}

			return nil, err
		}

		if !ok {
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}

			f.degraded(kind, cursor)

			return nil, nil
		}

		count++
		f.metrics.IncrCounterWithLabels(telemetry.MetricFetchPageCount, 1, labels)

		for _, raw := range page.Resources {
			slot := new(T)
			slots = append(slots, slot)

			g.Go(func() error {
				d, err := join(gctx, raw)
				if err != nil {
					return err
				}

				*slot = derive.Nullable(d)

				return nil
			})
		}

		if page.Next == "" {
			break
		}

		cursor = page.Next
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.metrics.IncrCounterWithLabels(telemetry.MetricFetchElementCount, float32(len(slots)), labels)
	span.SetAttributes(attribute.Int("cfops.pages", count), attribute.Int("cfops.elements", len(slots)))

	result = make([]T, len(slots))
	for i, slot := range slots {
		result[i] = *slot
	}

	return result, nil
}

// Parallel runs the auxiliary fetches of one primary resource concurrently and
// returns once all of them have completed. The first error cancels the rest.
func Parallel(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, fn := range fns {
		g.Go(func() error {
			return fn(gctx)
		})
	}

	return g.Wait()
}
