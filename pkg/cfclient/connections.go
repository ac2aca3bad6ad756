package cfclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Connections hands out one client per API host. The first caller for a host
// builds the client; concurrent callers for the same host wait for that build
// and share its result, including a failure.
type Connections struct {
	opts []Option

	mu      sync.Mutex
	entries map[string]*connection
	closed  bool
}

type connection struct {
	once   sync.Once
	client *Client
	err    error
}

// ErrConnectionsClosed is returned by Get after Close.
var ErrConnectionsClosed = errors.New("connections closed")

// NewConnections returns an empty cache. opts apply to every client it builds.
func NewConnections(opts ...Option) *Connections {
	return &Connections{opts: opts, entries: make(map[string]*connection)}
}

// Get returns the client for config's API host, building it if needed. Later
// configs for a cached host are ignored.
func (c *Connections) Get(ctx context.Context, config *capi.Config) (*Client, error) {
	if config == nil {
		return nil, capi.ErrConfigRequired
	}

	host, err := hostOf(config.APIEndpoint)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil, ErrConnectionsClosed
	}

	entry, ok := c.entries[host]
	if !ok {
		entry = &connection{}
		c.entries[host] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.client, entry.err = New(ctx, config, c.opts...)
	})

	return entry.client, entry.err
}

// Forget drops the cached client for host so the next Get builds a new one.
// The dropped client is closed.
func (c *Connections) Forget(host string) error {
	c.mu.Lock()
	entry, ok := c.entries[host]
	delete(c.entries, host)
	c.mu.Unlock()

	if !ok {
		return nil
	}

	return entry.close()
}

// Hosts lists the hosts with a cached entry.
func (c *Connections) Hosts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	hosts := make([]string, 0, len(c.entries))
	for host := range c.entries {
		hosts = append(hosts, host)
	}

	return hosts
}

// Close closes every cached client. The cache cannot be used afterwards.
func (c *Connections) Close() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*connection)
	c.closed = true
	c.mu.Unlock()

	var errs []error

	for _, entry := range entries {
		if err := entry.close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// close waits for a build in progress before releasing its client.
func (e *connection) close() error {
	e.once.Do(func() {})

	if e.client == nil {
		return nil
	}

	return e.client.Close()
}

func hostOf(endpoint string) (string, error) {
	normalized := NormalizeEndpoint(endpoint)
	if normalized == "" {
		return "", fmt.Errorf("%w: API endpoint is required", capi.ErrInvalidConfig)
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid API endpoint %q", capi.ErrInvalidConfig, endpoint)
	}

	return u.Host, nil
}
