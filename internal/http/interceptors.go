package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// RequestIDHeader correlates a request with Cloud Controller logs.
const RequestIDHeader = "X-Vcap-Request-Id"

// RequestInterceptor runs before a request is sent. Returning an error aborts it.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor runs after a response has been read.
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *Response) error

// InterceptorChain runs interceptors in registration order.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *http.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *http.Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// HeaderInterceptor sets fixed headers on every request.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		return nil
	}
}

// RequestIDInterceptor tags requests that carry no request ID with a random one.
func RequestIDInterceptor() RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}

		return nil
	}
}

// LoggingResponseInterceptor logs every response, failures at warn level.
func LoggingResponseInterceptor(logger capi.Logger) ResponseInterceptor {
	logger = capi.OrNop(logger)

	return func(_ context.Context, req *http.Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.URL.Path,
			"status_code": resp.StatusCode,
		}

		if id := req.Header.Get(RequestIDHeader); id != "" {
			fields["request_id"] = id
		}

		if resp.StatusCode >= http.StatusBadRequest {
			logger.Warn("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}
