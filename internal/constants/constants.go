// Package constants holds defaults shared by the client and the CLI.
package constants

import "time"

// DefaultUserAgent identifies cfops to the Cloud Controller.
const DefaultUserAgent = "cfops/1.0"

// File and directory permissions.
const (
	ConfigDirPerm  = 0750
	ConfigFilePerm = 0600
)

// HTTP timeouts.
const (
	DefaultHTTPTimeout = 30 * time.Second
	ShortHTTPTimeout   = 10 * time.Second
)

// Transport retry limits, applied below the fetch retrier.
const (
	DefaultRetryMax     = 0
	DefaultRetryWaitMin = 1 * time.Second
	DefaultRetryWaitMax = 10 * time.Second
)

// Fetch defaults.
const (
	// DefaultRetryAttempts counts the first try.
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1 * time.Second

	// DefaultFetchConcurrency bounds auxiliary joins per page. Zero is unbounded.
	DefaultFetchConcurrency = 0

	// DefaultPerPage leaves the page size to the server.
	DefaultPerPage = 0
	MaxPerPage     = 5000
)

// Asynchronous job polling.
const (
	DefaultJobPollInterval = 2 * time.Second
	DefaultJobPollTimeout  = 5 * time.Minute
)

// Job states reported by the v3 jobs endpoint.
const (
	JobStateProcessing = "PROCESSING"
	JobStatePolling    = "POLLING"
	JobStateComplete   = "COMPLETE"
	JobStateFailed     = "FAILED"
)

// Display.
const (
	NotAvailable = "N/A"
	None         = "none"
	MaskedSecret = "***"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Cloud Foundry error codes.
const (
	CFErrorCodeNotFound    = 10010
	CFErrorCodeServerError = 50000
)

// DevModeEnv allows skipping TLS verification when set to "true".
const DevModeEnv = "CAPI_DEV_MODE"
