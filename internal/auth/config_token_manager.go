package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister stores tokens between CLI invocations.
type ConfigPersister interface {
	SaveToken(apiHost string, token *Token) error
}

// PersistingTokenManager wraps OAuth2TokenManager and saves every newly
// obtained token through a ConfigPersister.
type PersistingTokenManager struct {
	inner     *OAuth2TokenManager
	persister ConfigPersister
	apiHost   string
	log       capi.Logger

	mu   sync.Mutex
	last string
}

// NewPersistingTokenManager seeds inner from the saved token, if any.
func NewPersistingTokenManager(config *OAuth2Config, persister ConfigPersister, apiHost string, saved *Token, log capi.Logger) *PersistingTokenManager {
	inner := NewOAuth2TokenManager(config)

	m := &PersistingTokenManager{
		inner:     inner,
		persister: persister,
		apiHost:   apiHost,
		log:       capi.OrNop(log),
	}

	if saved != nil && saved.AccessToken != "" {
		inner.store.Set(saved)
		m.last = saved.AccessToken
	}

	return m
}

// GetToken returns a valid access token, persisting it if it is new.
func (m *PersistingTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.inner.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a token refresh and persists the result.
func (m *PersistingTokenManager) RefreshToken(ctx context.Context) error {
	if err := m.inner.RefreshToken(ctx); err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken manually sets the access token without persisting it.
func (m *PersistingTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inner.SetToken(token, expiresAt)
	m.last = token
}

func (m *PersistingTokenManager) persistIfChanged() {
	current := m.inner.Current()
	if current == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current.AccessToken == m.last {
		return
	}

	if err := m.persist(current); err != nil {
		m.log.Warn("failed to persist refreshed token", map[string]interface{}{
			"api":   m.apiHost,
			"error": err.Error(),
		})

		return
	}

	m.last = current.AccessToken
}

func (m *PersistingTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	if err := m.persister.SaveToken(m.apiHost, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}
