package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/cfops/internal/auth"
	"github.com/fivetwenty-io/cfops/internal/constants"
)

// ConfigPersister implements auth.ConfigPersister over the CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// SaveToken stores token on the API configured for apiHost. A token without
// a refresh token keeps the one already saved.
func (p *ConfigPersister) SaveToken(apiHost string, token *auth.Token) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	_, api, ok := config.findAPI(apiHost)
	if !ok {
		return fmt.Errorf("API configuration for '%s': %w", apiHost, constants.ErrAPIConfigNotFound)
	}

	api.Token = token.AccessToken
	api.TokenExpiresAt = nil

	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		api.TokenExpiresAt = &expiresAt
	}

	if token.RefreshToken != "" {
		api.RefreshToken = token.RefreshToken
	}

	now := time.Now()
	api.LastRefreshed = &now

	return saveConfig(config)
}

// savedToken rebuilds the token persisted for api, or nil.
func savedToken(api *APIConfig) *auth.Token {
	if api.Token == "" {
		return nil
	}

	token := &auth.Token{AccessToken: api.Token, RefreshToken: api.RefreshToken, TokenType: "bearer"}
	if api.TokenExpiresAt != nil {
		token.ExpiresAt = *api.TokenExpiresAt
	}

	return token
}

var _ auth.ConfigPersister = (*ConfigPersister)(nil)

