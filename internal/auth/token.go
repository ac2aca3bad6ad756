// Package auth supplies bearer tokens for platform requests.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// expiryBuffer treats tokens about to expire as already expired.
const expiryBuffer = 30 * time.Second

// TokenManager supplies a bearer token on demand.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// Token is an OAuth2 token as returned by UAA.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// Valid reports whether the token can still be used. A zero expiry never expires.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

func (s *TokenStore) Clear() {
	s.Set(nil)
}

// StaticTokenManager serves a fixed access token.
type StaticTokenManager struct {
	store *TokenStore
}

func NewStaticTokenManager(token string) *StaticTokenManager {
	store := NewTokenStore()
	store.Set(&Token{AccessToken: token, TokenType: "bearer"})

	return &StaticTokenManager{store: store}
}

func (m *StaticTokenManager) GetToken(context.Context) (string, error) {
	token := m.store.Get()
	if !token.Valid() {
		return "", capi.ErrNotAuthenticated
	}

	return token.AccessToken, nil
}

func (m *StaticTokenManager) RefreshToken(context.Context) error {
	return capi.ErrStaticTokenCannotRefresh
}

func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}
