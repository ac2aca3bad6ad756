package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoAPIsConfigured    = errors.New("no APIs configured, use 'cfops target <url>' to add one")
	ErrAPIConfigNotFound   = errors.New("API configuration not found")
	ErrNoDomainForAPI      = errors.New("could not determine API domain")
	ErrUnsupportedFormat   = errors.New("unsupported output format")
	ErrAppFlagRequired     = errors.New("--app flag is required")
	ErrCredentialsRequired = errors.New("either --username or --client-id is required")
	ErrPasswordRequired    = errors.New("password required: pass --password or run from a terminal")
)
