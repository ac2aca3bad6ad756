// Package http is the JSON transport to the Cloud Controller. It injects
// bearer tokens, decodes error bodies of either API generation into
// *capi.ResponseError, runs interceptors, and revalidates GET responses
// against an optional ETag cache.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/cfops/internal/auth"
	"github.com/fivetwenty-io/cfops/internal/cache"
	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/internal/telemetry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Request describes one API call. Path may be a bare path, a path with a
// query string, or an absolute URL; only its path and query are used.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	tokenManager auth.TokenManager
	httpClient   *retryablehttp.Client
	userAgent    string
	logger       capi.Logger
	debug        bool
	metrics      *metrics.Metrics
	cache        cache.Cache
	cacheTTL     time.Duration
	interceptors *InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger capi.Logger) Option {
	return func(c *Client) {
		c.logger = capi.OrNop(logger)
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables connection-level retries for transient statuses.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate checks.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		transport, ok := c.httpClient.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return
		}

		transport = transport.Clone()
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{} //nolint:gosec // MinVersion set below
		}

		transport.TLSClientConfig.MinVersion = tls.VersionTLS12
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // development only
		c.httpClient.HTTPClient.Transport = transport
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = telemetry.Metrics(m)
	}
}

// WithCache enables ETag revalidation of GET responses.
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cc
		c.cacheTTL = ttl
	}
}

func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddRequestInterceptor(i)
	}
}

func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddResponseInterceptor(i)
	}
}

// NewClient creates a client for baseURL. tokenManager may be nil for
// unauthenticated endpoints.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 0
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		httpClient:   rc,
		userAgent:    constants.DefaultUserAgent,
		logger:       capi.NopLogger{},
		metrics:      telemetry.Metrics(nil),
		interceptors: NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// resolve builds the request URL for path. Absolute hrefs returned by the
// platform keep their own path, which already carries any prefix of the API
// root, and are sent to the API root's scheme and host. Other paths are
// placed under the API root unless they already start with its path.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid API endpoint %q: %w", c.baseURL, err)
	}

	merged := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}

	prefix := strings.TrimSuffix(base.EscapedPath(), "/")
	target := ref.EscapedPath()

	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	if !ref.IsAbs() && ref.Host == "" && prefix != "" && target != prefix && !strings.HasPrefix(target, prefix+"/") {
		target = prefix + target
	}

	full := base.Scheme + "://" + base.Host + target
	if encoded := merged.Encode(); encoded != "" {
		full += "?" + encoded
	}

	return full, nil
}

// Do sends req. A non-2xx status is returned as *capi.ResponseError together
// with the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.send(ctx, req, fullURL, body, false)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokenManager != nil {
		if refreshErr := c.tokenManager.RefreshToken(ctx); refreshErr == nil {
			resp, err = c.send(ctx, req, fullURL, body, true)
			if err != nil {
				return resp, err
			}
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, capi.ParseResponseError(resp.StatusCode, resp.Body)
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *Request, fullURL string, body []byte, isRetry bool) (*Response, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth token: %w", err)
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	cacheKey := req.Method + " " + fullURL
	cached := c.cachedEntry(ctx, req.Method, cacheKey)

	if cached != nil {
		httpReq.Header.Set("If-None-Match", cached.ETag)
	}

	if err := c.interceptors.ExecuteRequestInterceptors(ctx, httpReq.Request); err != nil {
		return nil, err
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
			"retry":  isRetry,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.IncrCounterWithLabels(telemetry.MetricHTTPRequestCount, 1, []metrics.Label{
			telemetry.LabelMethod.M(req.Method), telemetry.LabelError.M("transport"),
		})

		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.metrics.IncrCounterWithLabels(telemetry.MetricHTTPRequestCount, 1, []metrics.Label{
		telemetry.LabelMethod.M(req.Method), telemetry.LabelStatus.M(strconv.Itoa(resp.StatusCode)),
	})

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":   req.Method,
			"url":      fullURL,
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
		})
	}

	resp = c.revalidate(ctx, req.Method, cacheKey, cached, resp)

	if err := c.interceptors.ExecuteResponseInterceptors(ctx, httpReq.Request, resp); err != nil {
		return resp, err
	}

	return resp, nil
}

func (c *Client) cachedEntry(ctx context.Context, method, key string) *cache.Entry {
	if c.cache == nil || method != http.MethodGet {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil || entry.ETag == "" {
		return nil
	}

	return entry
}

// revalidate serves the cached body on 304 and stores validators of fresh 200s.
func (c *Client) revalidate(ctx context.Context, method, key string, cached *cache.Entry, resp *Response) *Response {
	if c.cache == nil || method != http.MethodGet {
		return resp
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		c.metrics.IncrCounter(telemetry.MetricHTTPRevalidatedCount, 1)

		return &Response{StatusCode: http.StatusOK, Headers: resp.Headers, Body: cached.Data}
	}

	if etag := resp.Headers.Get("ETag"); resp.StatusCode == http.StatusOK && etag != "" {
		entry := &cache.Entry{Data: resp.Body, ETag: etag}
		if c.cacheTTL > 0 {
			entry.ExpiresAt = time.Now().Add(c.cacheTTL)
		}

		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn("failed to cache response", map[string]interface{}{"error": err.Error()})
		}
	}

	return resp
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// GetJSON sends a GET request and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}

	return decode(resp, out)
}

// DoJSON sends req and decodes a non-empty body into out, which may be nil.
func (c *Client) DoJSON(ctx context.Context, req *Request, out interface{}) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return resp, err
	}

	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return resp, nil
	}

	return resp, decode(resp, out)
}

func decode(resp *Response, out interface{}) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w: %w", capi.ErrMalformedResponse, err)
	}

	return nil
}
