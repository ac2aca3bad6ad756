package capi

import (
	"context"
	"time"

	"github.com/hashicorp/go-metrics"
	"go.opentelemetry.io/otel/trace"
)

// ResourceClient reads one kind of platform resource. Lookups by name use the
// platform's server-side name filter and return the first match. Under a
// fail-safe RetryPolicy an exhausted read returns nil and no error, never a
// *NotFoundError.
type ResourceClient[T any] interface {
	// Get returns the named resource or a *NotFoundError.
	Get(ctx context.Context, name string) (*T, error)
	// Lookup returns the named resource. When nothing matches it returns a
	// *NotFoundError if required, and nil, nil otherwise.
	Lookup(ctx context.Context, name string, required bool) (*T, error)
	GetByGUID(ctx context.Context, guid string) (*T, error)
	List(ctx context.Context) ([]*T, error)
}

// ApplicationsClient adds application lifecycle operations.
type ApplicationsClient interface {
	ResourceClient[Application]

	ListInSpace(ctx context.Context, spaceGUID string) ([]*Application, error)
	Start(ctx context.Context, guid string) (*Application, error)
	Stop(ctx context.Context, guid string) (*Application, error)
	// Delete removes the application. Deleting an application that no longer exists succeeds.
	Delete(ctx context.Context, guid string) error
}

// ServiceInstancesClient adds service instance deletion.
type ServiceInstancesClient interface {
	ResourceClient[ServiceInstance]

	Delete(ctx context.Context, guid string) error
}

// BuildsClient reads builds. Builds only exist on the v3 API.
type BuildsClient interface {
	GetByGUID(ctx context.Context, guid string) (*Build, error)
	ListForApplication(ctx context.Context, appGUID string) ([]*Build, error)
}

// PackagesClient reads packages. Packages only exist on the v3 API.
type PackagesClient interface {
	GetByGUID(ctx context.Context, guid string) (*Package, error)
	ListForApplication(ctx context.Context, appGUID string) ([]*Package, error)
}

// Client is the facade over one Cloud Controller, bound to one API generation.
type Client interface {
	APIVersion() APIVersion

	Organizations() ResourceClient[Organization]
	Spaces() ResourceClient[Space]
	Stacks() ResourceClient[Stack]
	Domains() ResourceClient[Domain]
	Routes() ResourceClient[Route]
	ServicePlans() ResourceClient[ServicePlan]
	Applications() ApplicationsClient
	ServiceInstances() ServiceInstancesClient
	Builds() BuildsClient
	Packages() PackagesClient
}

// RetryPolicy bounds how platform calls are retried.
type RetryPolicy struct {
	// Attempts is the total number of attempts, including the first.
	Attempts int `validate:"gte=1"`
	// Delay is the fixed wait between attempts.
	Delay time.Duration `validate:"gte=0"`
	// FailSafe degrades exhausted calls to a zero result instead of an error.
	FailSafe bool
}

// DefaultRetryPolicy returns three attempts one second apart, failing fast.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second}
}

// Config represents client configuration for building a capi.Client.
//
// # Authentication precedence
//
//  1. AccessToken: if set, it is used directly as a static Bearer token.
//  2. ClientID/ClientSecret: uses the OAuth2 client_credentials grant.
//  3. Username/Password: uses the OAuth2 password grant with the default CF
//     client ID ("cf").
//  4. No credentials: requests are sent without authentication.
//
// If authentication is required and TokenURL is not provided, cfclient.New
// discovers the UAA endpoint from the API root ("/" → links.uaa/login).
//
// # API generation
//
// APIVersion selects the wire generation. With "auto" (or empty) cfclient.New
// reads the API root and picks v3 when the root advertises
// links.cloud_controller_v3, v2 otherwise.
//
// # Retries
//
// Retry is the only retry policy applied to platform calls. RetryMax enables
// additional connection-level retries in the transport and defaults to 0.
type Config struct {
	// APIEndpoint: base URL for the CF API (e.g., "https://api.example.com").
	APIEndpoint string `validate:"required,url"`
	// APIVersion: "auto", "v2" or "v3". Empty means auto.
	APIVersion APIVersion `validate:"omitempty,oneof=auto v2 v3"`

	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	// TokenURL: full OAuth2 token endpoint. Discovered when empty.
	TokenURL string `validate:"omitempty,url"`

	// HTTPTimeout: per-request timeout of the underlying HTTP client.
	HTTPTimeout time.Duration `validate:"gte=0"`
	// RetryMax: connection-level retries performed by the transport.
	RetryMax     int           `validate:"gte=0"`
	RetryWaitMin time.Duration `validate:"gte=0"`
	RetryWaitMax time.Duration `validate:"gte=0"`

	// Retry: the execution retry policy applied to every platform call.
	Retry RetryPolicy
	// FetchConcurrency limits in-flight element joins per list fetch. 0 means unlimited.
	FetchConcurrency int `validate:"gte=0"`
	// PerPage is the page size requested from list endpoints. 0 uses the platform default.
	PerPage int `validate:"gte=0,lte=5000"`

	// Cache enables the conditional-GET response cache when non-nil.
	Cache *CacheConfig

	Debug  bool
	Logger Logger
	// Metrics receives counters and timings. Nil uses the go-metrics global.
	Metrics *metrics.Metrics
	// TracerProvider supplies fetch spans. Nil uses the otel global provider.
	TracerProvider trace.TracerProvider

	// SkipTLSVerify is honored only when CAPI_DEV_MODE is "true" or "1".
	SkipTLSVerify bool
	UserAgent     string
}

// CacheType represents the type of cache backend.
type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeNATS   CacheType = "nats"
	CacheTypeNone   CacheType = "none"
)

// CacheConfig configures the conditional-GET response cache.
type CacheConfig struct {
	Type   CacheType `validate:"oneof=memory nats none"`
	Memory *MemoryCacheConfig
	NATS   *NATSKVConfig
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of entries kept.
	MaxSize int
	// TTL bounds how long a validator is remembered.
	TTL time.Duration
}

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	URL    string `validate:"required"`
	Bucket string `validate:"required"`
	TTL    time.Duration
}
