// Package retry runs platform calls under a bounded, fixed-delay retry policy.
//
// An operation is attempted at most Attempts times. Errors whose HTTP status is
// listed as ignorable are passed to a Handler instead of being retried. Errors
// that are not retryable (client errors other than 408 and 429) are returned at
// once. When every attempt fails the Retrier either returns an *ExhaustedError
// or, in fail-safe mode, logs and returns the zero value. Attempt tells such a
// degraded zero value apart from a result the operation produced.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-metrics"

	"github.com/fivetwenty-io/cfops/internal/auth"
	"github.com/fivetwenty-io/cfops/internal/telemetry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// ExhaustedError is returned in fail-fast mode when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Handler decides the outcome of an ignorable failure. Returning nil degrades
// the call to its zero value; returning an error propagates it.
type Handler interface {
	Handle(ctx context.Context, err error) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, err error) error

func (f HandlerFunc) Handle(ctx context.Context, err error) error {
	return f(ctx, err)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithHandler replaces the default handler, which logs and ignores.
func WithHandler(h Handler) Option {
	return func(r *Retrier) {
		if h != nil {
			r.handler = h
		}
	}
}

func WithLogger(l capi.Logger) Option {
	return func(r *Retrier) {
		r.log = capi.OrNop(l)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retrier) {
		r.metrics = telemetry.Metrics(m)
	}
}

// WithRetryable replaces the classifier deciding which errors are worth another attempt.
func WithRetryable(fn func(error) bool) Option {
	return func(r *Retrier) {
		if fn != nil {
			r.retryable = fn
		}
	}
}

// Retrier is safe for concurrent use; it holds no per-call state.
type Retrier struct {
	policy    capi.RetryPolicy
	handler   Handler
	log       capi.Logger
	metrics   *metrics.Metrics
	retryable func(error) bool
}

// New builds a Retrier. Attempts below 1 are raised to 1 and a negative delay to 0.
func New(policy capi.RetryPolicy, opts ...Option) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	if policy.Delay < 0 {
		policy.Delay = 0
	}

	r := &Retrier{
		policy:    policy,
		log:       capi.NopLogger{},
		metrics:   telemetry.Metrics(nil),
		retryable: Retryable,
	}
	r.handler = HandlerFunc(r.ignore)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FailSafe returns a copy of r that degrades exhausted calls instead of failing.
func (r *Retrier) FailSafe() *Retrier {
	c := *r
	c.policy.FailSafe = true

	return &c
}

// Policy reports the policy in effect.
func (r *Retrier) Policy() capi.RetryPolicy {
	return r.policy
}

func (r *Retrier) ignore(_ context.Context, err error) error {
	r.log.Debug("ignoring error", map[string]interface{}{
		"error":  err.Error(),
		"status": capi.StatusCode(err),
	})

	return nil
}

// permanentErrors lists failures without an HTTP status that retrying cannot fix.
var permanentErrors = []error{
	capi.ErrIncompatibleSchema,
	capi.ErrResourceNotFound,
	capi.ErrUnsupportedAPIVersion,
	capi.ErrJobFailed,
	capi.ErrJobTimeout,
	capi.ErrNotAuthenticated,
	capi.ErrStaticTokenCannotRefresh,
	capi.ErrMalformedResponse,
	capi.ErrInvalidCredentials,
	auth.ErrNoValidCredentials,
}

// Retryable reports whether err is transient. Transport failures without an
// HTTP status, request timeouts, throttling and server errors are.
func Retryable(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return false
		}
	}

	switch status := capi.StatusCode(err); {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	default:
		return status >= http.StatusInternalServerError
	}
}

// ignoredError marks a failure whose status was listed as ignorable.
type ignoredError struct {
	err error
}

func (e *ignoredError) Error() string { return e.err.Error() }
func (e *ignoredError) Unwrap() error { return e.err }

// Do runs op under r's policy and returns its result. A degraded call returns
// the zero value and a nil error.
func Do[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error), ignorable ...int) (T, error) {
	res, _, err := Attempt(ctx, r, op, ignorable...)

	return res, err
}

// Attempt is Do that also reports whether op produced the result. ok is false
// when the call was degraded to the zero value, either because the handler
// ignored the failure or because the retries ran out in fail-safe mode.
func Attempt[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error), ignorable ...int) (T, bool, error) {
	var zero T

	attempt := 0
	try := func() (T, error) {
		attempt++
		r.metrics.IncrCounter(telemetry.MetricRetryAttemptCount, 1)

		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		status := capi.StatusCode(err)
		if status != 0 && slices.Contains(ignorable, status) {
			return zero, backoff.Permanent(&ignoredError{err: err})
		}

		if ctx.Err() != nil || !r.retryable(err) {
			return zero, backoff.Permanent(err)
		}

		r.log.Warn("attempt failed", map[string]interface{}{
			"attempt":  attempt,
			"attempts": r.policy.Attempts,
			"status":   status,
			"error":    err.Error(),
		})

		return zero, err
	}

	if r.policy.Attempts > 1 {
		res, err := backoff.Retry[T](ctx, try,
			backoff.WithBackOff(backoff.NewConstantBackOff(r.policy.Delay)),
			backoff.WithMaxTries(uint(r.policy.Attempts-1)),
			backoff.WithMaxElapsedTime(0),
		)
		if err == nil {
			return res, true, nil
		}

		if ctx.Err() != nil {
			return zero, false, context.Cause(ctx)
		}

		if done, err := r.settle(ctx, err); done {
			return zero, false, err
		}

		if err := wait(ctx, r.policy.Delay); err != nil {
			return zero, false, err
		}
	}

	res, err := try()
	if err == nil {
		return res, true, nil
	}

	if done, err := r.settle(ctx, err); done {
		return zero, false, err
	}

	return zero, false, r.exhausted(err)
}

// Run is Do for operations without a result.
func (r *Retrier) Run(ctx context.Context, op func(context.Context) error, ignorable ...int) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, ignorable...)

	return err
}

// settle resolves ignorable and fatal failures. It reports false for
// retryable failures, which the caller keeps attempting.
func (r *Retrier) settle(ctx context.Context, err error) (bool, error) {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	var ignored *ignoredError
	if errors.As(err, &ignored) {
		r.metrics.IncrCounterWithLabels(telemetry.MetricRetryIgnoredCount, 1,
			[]metrics.Label{telemetry.LabelStatus.M(strconv.Itoa(capi.StatusCode(ignored.err)))})

		return true, r.handler.Handle(ctx, ignored.err)
	}

	if ctx.Err() != nil || !r.retryable(err) {
		return true, err
	}

	return false, err
}

func (r *Retrier) exhausted(err error) error {
	fields := map[string]interface{}{
		"attempts": r.policy.Attempts,
		"status":   capi.StatusCode(err),
		"error":    err.Error(),
	}

	if r.policy.FailSafe {
		r.metrics.IncrCounter(telemetry.MetricRetryDegradedCount, 1)
		r.log.Error("retries exhausted, returning empty result", fields)

		return nil
	}

	r.metrics.IncrCounter(telemetry.MetricRetryExhaustedCount, 1)

	return &ExhaustedError{Attempts: r.policy.Attempts, Err: err}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
