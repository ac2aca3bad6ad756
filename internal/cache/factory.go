package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// DefaultConfig returns default cache configuration.
func DefaultConfig() *capi.CacheConfig {
	return &capi.CacheConfig{
		Type: capi.CacheTypeMemory,
		Memory: &capi.MemoryCacheConfig{
			MaxSize: DefaultMaxSize,
			TTL:     DefaultTTL,
		},
	}
}

// NewFromConfig creates a cache backend from configuration. A nil config
// yields the default memory cache. A NATS backend is fronted by a memory
// cache sized by config.Memory and is returned as a *Chain, which implements
// io.Closer.
func NewFromConfig(ctx context.Context, config *capi.CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Type {
	case capi.CacheTypeMemory, "":
		return NewMemoryCache(memorySize(config)), nil

	case capi.CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		kv, err := NewNATSKVCache(ctx, config.NATS)
		if err != nil {
			return nil, err
		}

		return NewChain(NewMemoryCache(memorySize(config)), kv), nil

	case capi.CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

func memorySize(config *capi.CacheConfig) int {
	if config.Memory != nil && config.Memory.MaxSize > 0 {
		return config.Memory.MaxSize
	}

	return DefaultMaxSize
}

// TTL returns the validator lifetime configured for config's backend.
func TTL(config *capi.CacheConfig) time.Duration {
	if config == nil {
		return DefaultTTL
	}

	switch {
	case config.Type == capi.CacheTypeNATS && config.NATS != nil && config.NATS.TTL > 0:
		return config.NATS.TTL
	case config.Memory != nil && config.Memory.TTL > 0:
		return config.Memory.TTL
	default:
		return DefaultTTL
	}
}
