package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func TestOAuth2TokenManager_GetToken(t *testing.T) {
	t.Run("returns existing valid token", func(t *testing.T) {
		manager := NewOAuth2TokenManager(&OAuth2Config{
			AccessToken: "existing-token",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "existing-token", token)
	})

	t.Run("refreshes expired token using refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "old-refresh-token", r.Form.Get("refresh_token"))

			response := Token{
				AccessToken:  "new-access-token",
				RefreshToken: "new-refresh-token",
				ExpiresIn:    3600,
				TokenType:    "bearer",
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/oauth/token",
			RefreshToken: "old-refresh-token",
		})

		// Set expired token
		manager.store.Set(&Token{
			AccessToken:  "expired-token",
			RefreshToken: "old-refresh-token",
			ExpiresAt:    time.Now().Add(-1 * time.Hour),
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-access-token", token)
	})

	t.Run("uses client credentials when no refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			// Check basic auth
			username, password, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", username)
			assert.Equal(t, "client-secret", password)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))

			response := Token{
				AccessToken: "client-token",
				ExpiresIn:   3600,
				TokenType:   "bearer",
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/oauth/token",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "client-token", token)
	})

	t.Run("uses password grant", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "password", r.Form.Get("grant_type"))
			assert.Equal(t, "testuser", r.Form.Get("username"))
			assert.Equal(t, "testpass", r.Form.Get("password"))

			response := Token{
				AccessToken:  "password-token",
				RefreshToken: "refresh-token",
				ExpiresIn:    3600,
				TokenType:    "bearer",
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL: server.URL + "/oauth/token",
			Username: "testuser",
			Password: "testpass",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "password-token", token)
	})

	t.Run("handles token request error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			response := map[string]string{
				"error":             "invalid_client",
				"error_description": "Client authentication failed",
			}
			_ = json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/oauth/token",
			ClientID:     "bad-client",
			ClientSecret: "bad-secret",
		})

		token, err := manager.GetToken(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_client")
		assert.Contains(t, err.Error(), "Client authentication failed")
		assert.Equal(t, "", token)
	})

	t.Run("no credentials available", func(t *testing.T) {
		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL: "http://example.com/oauth/token",
		})

		token, err := manager.GetToken(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no valid credentials available")
		assert.Equal(t, "", token)
	})
}

func TestOAuth2TokenManager_SetToken(t *testing.T) {
	manager := NewOAuth2TokenManager(&OAuth2Config{})

	expiresAt := time.Now().Add(1 * time.Hour)
	manager.SetToken("manual-token", expiresAt)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manual-token", token)

	storedToken := manager.store.Get()
	assert.Equal(t, "manual-token", storedToken.AccessToken)
	assert.Equal(t, "bearer", storedToken.TokenType)
	assert.Equal(t, expiresAt.Unix(), storedToken.ExpiresAt.Unix())
}

func TestOAuth2TokenManager_RefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := Token{
			AccessToken: "refreshed-token",
			ExpiresIn:   3600,
			TokenType:   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	// Set a valid token
	manager.SetToken("current-token", time.Now().Add(1*time.Hour))

	// Force refresh
	err := manager.RefreshToken(context.Background())
	require.NoError(t, err)

	// Should have new token
	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", token)
}

func TestOAuth2TokenManager_RefreshFailureFallsBackToPassword(t *testing.T) {
	var grants []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grants = append(grants, r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")

		if r.Form.Get("grant_type") == "refresh_token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"refresh token expired"}`))

			return
		}

		_ = json.NewEncoder(w).Encode(Token{AccessToken: "fresh-token", ExpiresIn: 600, TokenType: "bearer"})
	}))
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		Username:     "admin",
		Password:     "secret",
		RefreshToken: "stale-refresh-token",
	})

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, []string{"refresh_token", "password"}, grants)
	assert.WithinDuration(t, time.Now().Add(600*time.Second), manager.Current().ExpiresAt, 5*time.Second)
}

func TestOAuth2TokenManager_RejectedGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Bad credentials"}`))
	}))
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL: server.URL + "/oauth/token",
		Username: "admin",
		Password: "wrong",
	})

	_, err := manager.GetToken(context.Background())
	require.ErrorIs(t, err, capi.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "password grant failed")

	_, err = NewOAuth2TokenManager(&OAuth2Config{TokenURL: server.URL}).GetToken(context.Background())
	require.ErrorIs(t, err, ErrNoValidCredentials)
}

func TestOAuth2TokenManager_ObtainsOnceConcurrently(t *testing.T) {
	var mu sync.Mutex

	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "shared-token", ExpiresIn: 3600, TokenType: "bearer"})
	}))
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		HTTPClient:   server.Client(),
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := manager.GetToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "shared-token", token)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, requests)
}

type memoryPersister struct {
	saved map[string]*Token
}

func (p *memoryPersister) SaveToken(apiHost string, token *Token) error {
	p.saved[apiHost] = token

	return nil
}

func TestPersistingTokenManager(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "new-token", RefreshToken: "new-refresh", ExpiresIn: 3600})
	}))
	defer server.Close()

	persister := &memoryPersister{saved: map[string]*Token{}}

	t.Run("saved token is reused without persisting", func(t *testing.T) {
		manager := NewPersistingTokenManager(&OAuth2Config{TokenURL: server.URL}, persister, "api.example.com",
			&Token{AccessToken: "saved-token", ExpiresAt: time.Now().Add(time.Hour)}, nil)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "saved-token", token)
		assert.Empty(t, persister.saved)
	})

	t.Run("new token is persisted", func(t *testing.T) {
		manager := NewPersistingTokenManager(&OAuth2Config{TokenURL: server.URL}, persister, "api.example.com",
			&Token{AccessToken: "expired-token", RefreshToken: "old-refresh", ExpiresAt: time.Now().Add(-time.Hour)}, nil)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-token", token)
		require.Contains(t, persister.saved, "api.example.com")
		assert.Equal(t, "new-refresh", persister.saved["api.example.com"].RefreshToken)
	})
}
