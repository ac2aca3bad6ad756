package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// DefaultClientID is the UAA client the cf CLI uses for password grants.
const DefaultClientID = "cf"

// ErrNoValidCredentials is returned when no grant can be attempted.
var ErrNoValidCredentials = errors.New("no valid credentials available")

// OAuth2Config holds the grants an OAuth2TokenManager may use.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	// HTTPClient is used for token requests when set.
	HTTPClient *http.Client
}

// OAuth2TokenManager obtains tokens from UAA, preferring the refresh grant,
// then client credentials, then the password grant.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	mu     sync.Mutex
}

func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	m := &OAuth2TokenManager{config: config, store: NewTokenStore()}

	if config.AccessToken != "" {
		m.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return m
}

// GetToken returns a valid access token, obtaining a new one when needed.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.obtain(ctx)
	if err != nil {
		return "", err
	}

	m.store.Set(token)

	return token.AccessToken, nil
}

// RefreshToken discards the current access token and obtains a new one.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.store.Get(); current != nil {
		m.store.Set(&Token{RefreshToken: current.RefreshToken})
	}

	token, err := m.obtain(ctx)
	if err != nil {
		return err
	}

	m.store.Set(token)

	return nil
}

func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	var refresh string
	if current := m.store.Get(); current != nil {
		refresh = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

// Current returns the token held, which may be nil or expired.
func (m *OAuth2TokenManager) Current() *Token {
	return m.store.Get()
}

func (m *OAuth2TokenManager) obtain(ctx context.Context) (*Token, error) {
	if m.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.config.HTTPClient)
	}

	refresh := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refresh = current.RefreshToken
	}

	var refreshErr error

	if refresh != "" {
		tok, err := m.userConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
		if err == nil {
			return fromOAuth2(tok), nil
		}

		refreshErr = fmt.Errorf("refresh grant failed: %w", rejected(err))
	}

	switch {
	case m.config.ClientID != "" && m.config.ClientSecret != "" && m.config.Username == "":
		cc := &clientcredentials.Config{
			ClientID:     m.config.ClientID,
			ClientSecret: m.config.ClientSecret,
			TokenURL:     m.config.TokenURL,
			Scopes:       m.config.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		tok, err := cc.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("client credentials grant failed: %w", rejected(err))
		}

		return fromOAuth2(tok), nil

	case m.config.Username != "" && m.config.Password != "":
		tok, err := m.userConfig().PasswordCredentialsToken(ctx, m.config.Username, m.config.Password)
		if err != nil {
			return nil, fmt.Errorf("password grant failed: %w", rejected(err))
		}

		return fromOAuth2(tok), nil

	case refreshErr != nil:
		return nil, refreshErr

	default:
		return nil, ErrNoValidCredentials
	}
}

// rejected marks a grant the authorization server refused with a client
// error, such as bad credentials or a revoked refresh token.
func rejected(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil &&
		re.Response.StatusCode >= http.StatusBadRequest && re.Response.StatusCode < http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", capi.ErrInvalidCredentials, err)
	}

	return err
}

func (m *OAuth2TokenManager) userConfig() *oauth2.Config {
	clientID := m.config.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: m.config.ClientSecret,
		Scopes:       m.config.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func fromOAuth2(tok *oauth2.Token) *Token {
	token := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}

	if !tok.Expiry.IsZero() {
		token.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}

	return token
}
