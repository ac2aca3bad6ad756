package cfclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/cfops/internal/auth"
	"github.com/fivetwenty-io/cfops/internal/cache"
	"github.com/fivetwenty-io/cfops/internal/ccv2"
	"github.com/fivetwenty-io/cfops/internal/ccv3"
	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Client is a capi.Client that owns the resources its construction opened.
type Client struct {
	capi.Client

	closers []io.Closer
}

// Close releases the response cache connection, if any.
func (c *Client) Close() error {
	var errs []error

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Option adjusts how New assembles a client.
type Option func(*options)

type options struct {
	persister  auth.ConfigPersister
	savedToken *auth.Token
	handler    retry.Handler
	httpOpts   []capihttp.Option
}

// WithTokenPersister saves every token obtained by the OAuth2 grants and seeds
// the token store from saved.
func WithTokenPersister(p auth.ConfigPersister, saved *auth.Token) Option {
	return func(o *options) {
		o.persister = p
		o.savedToken = saved
	}
}

// WithRetryHandler decides how ignorable failures are treated.
func WithRetryHandler(h retry.Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithHTTPOptions passes extra transport options, such as interceptors.
func WithHTTPOptions(opts ...capihttp.Option) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, opts...)
	}
}

// New validates config, discovers what the API root advertises and returns a
// client bound to the selected API generation. config is not modified.
func New(ctx context.Context, config *capi.Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, capi.ErrConfigRequired
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := prepare(config)
	if err != nil {
		return nil, err
	}

	log := capi.OrNop(cfg.Logger)

	version, err := resolveRoot(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	log.Debug("connecting to cloud controller", map[string]interface{}{
		"api":     cfg.APIEndpoint,
		"version": string(version),
	})

	hc, closers, err := newTransport(ctx, &cfg, o)
	if err != nil {
		return nil, err
	}

	retryOpts := []retry.Option{retry.WithLogger(log), retry.WithMetrics(cfg.Metrics)}
	if o.handler != nil {
		retryOpts = append(retryOpts, retry.WithHandler(o.handler))
	}

	fetcher := fetch.New(retry.New(cfg.Retry, retryOpts...),
		fetch.WithConcurrency(cfg.FetchConcurrency),
		fetch.WithLogger(log),
		fetch.WithMetrics(cfg.Metrics),
		fetch.WithTracerProvider(cfg.TracerProvider),
	)

	var client capi.Client

	switch version {
	case capi.APIVersionV2:
		client = ccv2.New(hc, fetcher, ccv2.WithLogger(log), ccv2.WithPerPage(cfg.PerPage)).Client()
	case capi.APIVersionV3:
		client = ccv3.New(hc, fetcher, ccv3.WithLogger(log), ccv3.WithPerPage(cfg.PerPage)).Client()
	default:
		return nil, fmt.Errorf("%w: %s", capi.ErrUnknownAPIVersion, version)
	}

	return &Client{Client: client, closers: closers}, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// prepare copies config, fills defaults and validates the result.
func prepare(config *capi.Config) (capi.Config, error) {
	cfg := *config
	cfg.APIEndpoint = NormalizeEndpoint(cfg.APIEndpoint)

	if cfg.APIVersion == "" {
		cfg.APIVersion = capi.APIVersionAuto
	}

	if cfg.Retry == (capi.RetryPolicy{}) {
		cfg.Retry = capi.DefaultRetryPolicy()
	}

	if err := validate.Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", capi.ErrInvalidConfig, err)
	}

	if cfg.SkipTLSVerify && !isDevelopmentEnvironment() {
		return cfg, fmt.Errorf("%w (set %s=true)", capi.ErrSkipTLSOnlyInDev, constants.DevModeEnv)
	}

	return cfg, nil
}

// NormalizeEndpoint trims endpoint and defaults its scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// needsAuth checks if the config requires a token endpoint.
func needsAuth(config *capi.Config) bool {
	return config.Username != "" || config.ClientID != "" || config.RefreshToken != ""
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv(constants.DevModeEnv)

	return devMode == "true" || devMode == "1"
}

// resolveRoot reads the API root when the generation or the token endpoint
// is not configured, and fills cfg.TokenURL.
func resolveRoot(ctx context.Context, cfg *capi.Config) (capi.APIVersion, error) {
	discoverToken := needsAuth(cfg) && cfg.TokenURL == ""
	if cfg.APIVersion != capi.APIVersionAuto && !discoverToken {
		return cfg.APIVersion, nil
	}

	root, err := fetchRootInfo(ctx, createDiscoveryHTTPClient(cfg.SkipTLSVerify), cfg.APIEndpoint)
	if err != nil {
		return "", fmt.Errorf("discovering API root: %w", err)
	}

	if discoverToken {
		uaaURL := root.Links["uaa"].Href
		if uaaURL == "" {
			uaaURL = root.Links["login"].Href
		}

		if uaaURL == "" {
			return "", capi.ErrNoUAAOrLoginURL
		}

		cfg.TokenURL = strings.TrimSuffix(uaaURL, "/") + "/oauth/token"
	}

	if cfg.APIVersion != capi.APIVersionAuto {
		return cfg.APIVersion, nil
	}

	if root.Links["cloud_controller_v3"].Href != "" {
		return capi.APIVersionV3, nil
	}

	return capi.APIVersionV2, nil
}

// createDiscoveryHTTPClient creates an HTTP client for API root discovery.
// skipTLS has already been checked against the development environment.
func createDiscoveryHTTPClient(skipTLS bool) *http.Client {
	httpClient := &http.Client{
		Timeout: constants.ShortHTTPTimeout,
	}

	if skipTLS {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}, // #nosec G402 -- development mode only
		}
	}

	return httpClient
}

// fetchRootInfo fetches and parses the root info from the API endpoint.
func fetchRootInfo(ctx context.Context, httpClient *http.Client, apiEndpoint string) (*capi.RootInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiEndpoint+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting root info: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("%w with status %d: %s", capi.ErrRootInfoRequestFailed, resp.StatusCode, string(body))
	}

	var root capi.RootInfo
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing root info: %w", err)
	}

	return &root, nil
}

// newTokenManager picks the authentication the config asks for. A nil manager
// sends requests without a token.
func newTokenManager(cfg *capi.Config, o *options) auth.TokenManager {
	if cfg.AccessToken != "" && !needsAuth(cfg) {
		return auth.NewStaticTokenManager(cfg.AccessToken)
	}

	if !needsAuth(cfg) {
		return nil
	}

	oauthCfg := &auth.OAuth2Config{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
		RefreshToken: cfg.RefreshToken,
		AccessToken:  cfg.AccessToken,
	}

	if o.persister != nil {
		return auth.NewPersistingTokenManager(oauthCfg, o.persister, cfg.APIEndpoint, o.savedToken, cfg.Logger)
	}

	return auth.NewOAuth2TokenManager(oauthCfg)
}

func newTransport(ctx context.Context, cfg *capi.Config, o *options) (*capihttp.Client, []io.Closer, error) {
	log := capi.OrNop(cfg.Logger)

	httpOpts := []capihttp.Option{
		capihttp.WithLogger(log),
		capihttp.WithDebug(cfg.Debug),
		capihttp.WithRetryConfig(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax),
		capihttp.WithUserAgent(cfg.UserAgent),
		capihttp.WithTimeout(cfg.HTTPTimeout),
		capihttp.WithMetrics(cfg.Metrics),
		capihttp.WithRequestInterceptor(capihttp.RequestIDInterceptor()),
		capihttp.WithResponseInterceptor(capihttp.LoggingResponseInterceptor(log)),
	}

	if cfg.SkipTLSVerify {
		httpOpts = append(httpOpts, capihttp.WithInsecureSkipVerify())
	}

	var closers []io.Closer

	if cfg.Cache != nil && cfg.Cache.Type != capi.CacheTypeNone {
		cc, err := cache.NewFromConfig(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("creating response cache: %w", err)
		}

		if closer, ok := cc.(io.Closer); ok {
			closers = append(closers, closer)
		}

		httpOpts = append(httpOpts, capihttp.WithCache(cc, cache.TTL(cfg.Cache)))
	}

	httpOpts = append(httpOpts, o.httpOpts...)

	return capihttp.NewClient(cfg.APIEndpoint, newTokenManager(cfg, o), httpOpts...), closers, nil
}

// NewWithEndpoint creates a new client with just an API endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (*Client, error) {
	return New(ctx, &capi.Config{
		APIEndpoint: endpoint,
	})
}

// NewWithToken creates a new client with an API endpoint and access token.
func NewWithToken(ctx context.Context, endpoint, token string) (*Client, error) {
	return New(ctx, &capi.Config{
		APIEndpoint: endpoint,
		AccessToken: token,
	})
}

// NewWithClientCredentials creates a new client using OAuth2 client credentials.
func NewWithClientCredentials(ctx context.Context, endpoint, clientID, clientSecret string) (*Client, error) {
	return New(ctx, &capi.Config{
		APIEndpoint:  endpoint,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// NewWithPassword creates a new client using username/password authentication.
func NewWithPassword(ctx context.Context, endpoint, username, password string) (*Client, error) {
	return New(ctx, &capi.Config{
		APIEndpoint: endpoint,
		Username:    username,
		Password:    password,
	})
}
