//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fivetwenty-io/cfops/pkg/capi"
	"github.com/fivetwenty-io/cfops/pkg/cfclient"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	APIEndpoint  string
	APIVersion   string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	Verbose      bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIEndpoint:  os.Getenv("CF_API"),
		APIVersion:   os.Getenv("CF_API_VERSION"),
		Username:     os.Getenv("CF_USERNAME"),
		Password:     os.Getenv("CF_PASSWORD"),
		ClientID:     os.Getenv("CF_CLIENT_ID"),
		ClientSecret: os.Getenv("CF_CLIENT_SECRET"),
		AccessToken:  os.Getenv("CF_TOKEN"),
		Verbose:      os.Getenv("CFOPS_VERBOSE") == "true",
	}
}

// SkipIfMissingConfig skips the test when no platform is configured.
func (c *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if c.APIEndpoint == "" {
		t.Skip("CF_API environment variable not set, skipping integration tests")
	}

	if c.Username == "" && c.ClientID == "" && c.AccessToken == "" {
		t.Skip("no credentials set (CF_USERNAME, CF_CLIENT_ID or CF_TOKEN), skipping integration tests")
	}
}

// NewClient connects to the configured platform.
func (c *TestConfig) NewClient(t *testing.T) *cfclient.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := cfclient.New(ctx, &capi.Config{
		APIEndpoint:  c.APIEndpoint,
		APIVersion:   capi.APIVersion(c.APIVersion),
		Username:     c.Username,
		Password:     c.Password,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AccessToken:  c.AccessToken,
		Debug:        c.Verbose,
	})
	if err != nil {
		t.Fatalf("connecting to %s: %v", c.APIEndpoint, err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}
