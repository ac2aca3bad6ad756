package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// NATSKVCache keeps entries in a JetStream key-value bucket so that several
// client processes share validators. Bucket TTL handles expiry.
type NATSKVCache struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// NewNATSKVCache connects to cfg.URL and creates or updates the bucket.
func NewNATSKVCache(ctx context.Context, cfg *capi.NATSKVConfig) (*NATSKVCache, error) {
	if cfg == nil {
		return nil, ErrNATSConfigRequired
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("cfops"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	c, err := NewNATSKVCacheFromConn(ctx, nc, cfg.Bucket, cfg.TTL)
	if err != nil {
		nc.Close()

		return nil, err
	}

	return c, nil
}

// NewNATSKVCacheFromConn uses an existing connection. Close closes nc.
func NewNATSKVCacheFromConn(ctx context.Context, nc *nats.Conn, bucket string, ttl time.Duration) (*NATSKVCache, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		TTL:     ttl,
		History: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create key-value bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{nc: nc, kv: kv}, nil
}

// natsKey maps an arbitrary cache key to the restricted KV key alphabet.
func natsKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

func (c *NATSKVCache) Get(ctx context.Context, key string) (*Entry, error) {
	kve, err := c.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}

		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(kve.Value(), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	if entry.Expired() {
		_ = c.Delete(ctx, key)

		return nil, ErrEntryExpired
	}

	return &entry, nil
}

func (c *NATSKVCache) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if _, err := c.kv.Put(ctx, natsKey(key), data); err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}

	return nil
}

func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	var errs []error
	for k := range lister.Keys() {
		errs = append(errs, c.kv.Purge(ctx, k))
	}

	return errors.Join(errs...)
}

func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the NATS connection.
func (c *NATSKVCache) Close() error {
	return c.nc.Drain()
}
