package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/internal/telemetry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

type rawStack struct {
	Name string
}

func (s *rawStack) Derive() *capi.Stack {
	if s == nil {
		return nil
	}

	return &capi.Stack{Name: s.Name}
}

type rawApp struct {
	Name      string
	StackName string
}

type joinedApp struct {
	raw   rawApp
	stack *rawStack
}

func (j *joinedApp) Derive() *capi.Application {
	if j == nil {
		return nil
	}

	return &capi.Application{Name: j.raw.Name, Stack: j.stack.Derive()}
}

// pagedSource serves apps in pages of the given sizes; cursors are "p<index>".
type pagedSource struct {
	mu       sync.Mutex
	sizes    []int
	failures map[string]int
	cursors  []string
}

func (p *pagedSource) total() int {
	n := 0
	for _, s := range p.sizes {
		n += s
	}

	return n
}

func (p *pagedSource) pages(_ context.Context, cursor string) (fetch.Page[rawApp], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cursors = append(p.cursors, cursor)

	if p.failures[cursor] > 0 {
		p.failures[cursor]--

		return fetch.Page[rawApp]{}, &capi.ResponseError{StatusCode: http.StatusServiceUnavailable}
	}

	idx := 0
	if cursor != "" {
		_, _ = fmt.Sscanf(cursor, "p%d", &idx)
	}

	offset := 0
	for _, s := range p.sizes[:idx] {
		offset += s
	}

	page := fetch.Page[rawApp]{}
	for i := range p.sizes[idx] {
		n := offset + i
		page.Resources = append(page.Resources, rawApp{Name: fmt.Sprintf("app-%03d", n), StackName: fmt.Sprintf("stack-%03d", n)})
	}

	if idx+1 < len(p.sizes) {
		page.Next = fmt.Sprintf("p%d", idx+1)
	}

	return page, nil
}

func stackJoin(ctx context.Context, raw rawApp) (derive.Derivable[*capi.Application], error) {
	j := &joinedApp{raw: raw}

	err := fetch.Parallel(ctx, func(ctx context.Context) error {
		select {
		case <-time.After(time.Duration(rand.IntN(3)) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}

		j.stack = &rawStack{Name: raw.StackName}

		return nil
	})

	return j, err
}

func newFetcher(opts ...fetch.Option) *fetch.Fetcher {
	return fetch.New(retry.New(capi.RetryPolicy{Attempts: 3, Delay: time.Millisecond}), opts...)
}

func TestList_PaginationCompleteness(t *testing.T) {
	src := &pagedSource{sizes: []int{50, 50, 12}}

	apps, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, stackJoin)
	require.NoError(t, err)
	require.Len(t, apps, 112)

	for i, app := range apps {
		require.NotNil(t, app)
		assert.Equal(t, fmt.Sprintf("app-%03d", i), app.Name)
		require.NotNil(t, app.Stack)
		assert.Equal(t, fmt.Sprintf("stack-%03d", i), app.Stack.Name)
	}

	assert.Equal(t, []string{"", "p1", "p2"}, src.cursors)
}

func TestList_PageSizeIndependent(t *testing.T) {
	for _, sizes := range [][]int{{1}, {7, 7, 7, 7}, {3, 0, 5}, {100}} {
		src := &pagedSource{sizes: sizes}

		apps, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, stackJoin)
		require.NoError(t, err)
		assert.Len(t, apps, src.total())

		for i, app := range apps {
			assert.Equal(t, fmt.Sprintf("app-%03d", i), app.Name)
		}
	}
}

func TestList_Empty(t *testing.T) {
	src := &pagedSource{sizes: []int{0}}

	apps, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, stackJoin)
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

func TestList_ResumesFromFailingPage(t *testing.T) {
	src := &pagedSource{sizes: []int{2, 2, 2}, failures: map[string]int{"p1": 2}}

	apps, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, stackJoin)
	require.NoError(t, err)
	assert.Len(t, apps, 6)
	assert.Equal(t, []string{"", "p1", "p1", "p1", "p2"}, src.cursors)
}

func TestList_PageExhaustionPropagates(t *testing.T) {
	src := &pagedSource{sizes: []int{2, 2}, failures: map[string]int{"p1": 10}}

	_, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, stackJoin)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, http.StatusServiceUnavailable, capi.StatusCode(err))
}

func failSafeFetcher() *fetch.Fetcher {
	return fetch.New(retry.New(capi.RetryPolicy{Attempts: 2, Delay: time.Millisecond}).FailSafe())
}

func TestList_FailSafeDropsPartialListing(t *testing.T) {
	src := &pagedSource{sizes: []int{2, 2, 2}, failures: map[string]int{"p1": 10}}

	apps, err := fetch.List(t.Context(), failSafeFetcher(), "application", src.pages, stackJoin)
	require.NoError(t, err)
	assert.Nil(t, apps)
	assert.Equal(t, []string{"", "p1", "p1"}, src.cursors)
}

func TestOneAndFirst_FailSafeIsNotNotFound(t *testing.T) {
	unavailable := &capi.ResponseError{StatusCode: http.StatusServiceUnavailable}

	get := func(context.Context) (*rawStack, error) {
		return nil, unavailable
	}
	pages := func(context.Context, string) (fetch.Page[*rawStack], error) {
		return fetch.Page[*rawStack]{}, unavailable
	}

	direct := fetch.Direct[*capi.Stack, *rawStack]()

	for _, required := range []bool{true, false} {
		stack, err := fetch.One(t.Context(), failSafeFetcher(), "stack", "abc", get, direct, required)
		require.NoError(t, err)
		assert.Nil(t, stack)

		stack, err = fetch.First(t.Context(), failSafeFetcher(), "stack", "cflinuxfs4", pages, direct, required)
		require.NoError(t, err)
		assert.Nil(t, stack)
	}

	// A 404 is an answer, not a failure, and still reports a missing resource.
	missing := func(context.Context) (*rawStack, error) {
		return nil, &capi.ResponseError{StatusCode: http.StatusNotFound}
	}

	_, err := fetch.One(t.Context(), failSafeFetcher(), "stack", "abc", missing, direct, true)
	assert.True(t, capi.IsNotFound(err))
}

func TestList_JoinErrorPropagates(t *testing.T) {
	src := &pagedSource{sizes: []int{5, 5}}
	errStack := errors.New("stack lookup failed")

	_, err := fetch.List(t.Context(), newFetcher(), "application", src.pages,
		func(ctx context.Context, raw rawApp) (derive.Derivable[*capi.Application], error) {
			if raw.Name == "app-006" {
				return nil, errStack
			}

			return stackJoin(ctx, raw)
		})

	require.ErrorIs(t, err, errStack)
}

func TestList_ConcurrencyLimit(t *testing.T) {
	src := &pagedSource{sizes: []int{20, 20}}

	var inFlight, peak atomic.Int32

	join := func(ctx context.Context, raw rawApp) (derive.Derivable[*capi.Application], error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(time.Millisecond)

		return &joinedApp{raw: raw}, nil
	}

	apps, err := fetch.List(t.Context(), newFetcher(fetch.WithConcurrency(4)), "application", src.pages, join)
	require.NoError(t, err)
	assert.Len(t, apps, 40)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestList_JoinsRunConcurrently(t *testing.T) {
	src := &pagedSource{sizes: []int{10}}

	release := make(chan struct{})

	var started atomic.Int32

	join := func(ctx context.Context, raw rawApp) (derive.Derivable[*capi.Application], error) {
		if started.Add(1) == 10 {
			close(release)
		}

		select {
		case <-release:
		case <-time.After(5 * time.Second):
			return nil, errors.New("joins were serialized")
		}

		return &joinedApp{raw: raw}, nil
	}

	_, err := fetch.List(t.Context(), newFetcher(), "application", src.pages, join)
	require.NoError(t, err)
}

func TestOne_SlowAuxiliaryIsReflected(t *testing.T) {
	get := func(context.Context) (*rawApp, error) {
		return &rawApp{Name: "web"}, nil
	}

	join := func(ctx context.Context, raw *rawApp) (derive.Derivable[*capi.Application], error) {
		j := &joinedApp{raw: *raw}

		err := fetch.Parallel(ctx,
			func(context.Context) error {
				time.Sleep(50 * time.Millisecond)
				j.stack = &rawStack{Name: "cflinuxfs4"}

				return nil
			},
			func(context.Context) error {
				return nil
			},
		)

		return j, err
	}

	app, err := fetch.One(t.Context(), newFetcher(), "application", "web", get, join, true)
	require.NoError(t, err)
	require.NotNil(t, app.Stack)
	assert.Equal(t, "cflinuxfs4", app.Stack.Name)
}

func TestOne_NotFound(t *testing.T) {
	missing := func(context.Context) (*rawStack, error) {
		return nil, &capi.ResponseError{StatusCode: http.StatusNotFound}
	}
	empty := func(context.Context) (*rawStack, error) {
		return nil, nil
	}

	for name, get := range map[string]func(context.Context) (*rawStack, error){"404": missing, "empty": empty} {
		t.Run(name, func(t *testing.T) {
			stack, err := fetch.One(t.Context(), newFetcher(), "stack", "abc", get, fetch.Direct[*capi.Stack, *rawStack](), false)
			require.NoError(t, err)
			assert.Nil(t, stack)

			_, err = fetch.One(t.Context(), newFetcher(), "stack", "abc", get, fetch.Direct[*capi.Stack, *rawStack](), true)

			var notFound *capi.NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, "stack", notFound.Kind)
			assert.Equal(t, "abc", notFound.Key)
		})
	}
}

func TestFirst(t *testing.T) {
	pages := func(names ...string) fetch.PageFunc[*rawStack] {
		return func(context.Context, string) (fetch.Page[*rawStack], error) {
			page := fetch.Page[*rawStack]{}
			for _, n := range names {
				page.Resources = append(page.Resources, &rawStack{Name: n})
			}

			return page, nil
		}
	}

	direct := fetch.Direct[*capi.Stack, *rawStack]()

	stack, err := fetch.First(t.Context(), newFetcher(), "stack", "cflinuxfs4", pages("cflinuxfs4", "other"), direct, true)
	require.NoError(t, err)
	assert.Equal(t, "cflinuxfs4", stack.Name)

	stack, err = fetch.First(t.Context(), newFetcher(), "stack", "nope", pages(), direct, false)
	require.NoError(t, err)
	assert.Nil(t, stack)

	_, err = fetch.First(t.Context(), newFetcher(), "stack", "nope", pages(), direct, true)
	require.ErrorIs(t, err, capi.ErrResourceNotFound)
	assert.True(t, capi.IsNotFound(err))
}

func TestParallel_FirstErrorCancelsRest(t *testing.T) {
	errBoom := errors.New("boom")

	var cancelled atomic.Bool

	err := fetch.Parallel(t.Context(),
		func(context.Context) error { return errBoom },
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				cancelled.Store(true)
			case <-time.After(5 * time.Second):
			}

			return nil
		},
	)

	require.ErrorIs(t, err, errBoom)
	assert.True(t, cancelled.Load())
}

func TestFetch_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	sink := metrics.NewInmemSink(time.Minute, time.Minute)
	m, err := telemetry.NewMetrics(sink)
	require.NoError(t, err)

	src := &pagedSource{sizes: []int{3, 2}}

	_, err = fetch.List(t.Context(), newFetcher(fetch.WithTracerProvider(tp), fetch.WithMetrics(m)), "application", src.pages, stackJoin)
	require.NoError(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "fetch.list", ended[0].Name())

	data := sink.Data()
	require.NotEmpty(t, data)

	var pages, elements int
	for _, c := range data[0].Counters {
		switch c.Name {
		case "cfops.fetch.page.count":
			pages += c.Count
		case "cfops.fetch.element.count":
			elements += int(c.Sum)
		}
	}

	assert.Equal(t, 2, pages)
	assert.Equal(t, 5, elements)
}
