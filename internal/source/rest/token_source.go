package rest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource obtains client-credentials bearer tokens and caches one until it is within
// margin of expiry. With no client id configured it hands out an empty token and the client
// sends no Authorization header.
type TokenSource struct {
	config     clientcredentials.Config
	httpClient *http.Client
	margin     time.Duration

	mu     sync.Mutex
	source oauth2.TokenSource
}

func NewTokenSource(httpClient *http.Client, tokenURL, clientID, clientSecret string, margin time.Duration) *TokenSource {
	return &TokenSource{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		margin:     margin,
	}
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if s.config.ClientID == "" {
		return "", nil
	}

	s.mu.Lock()
	if s.source == nil {
		s.source = s.newSource()
	}
	src := s.source
	s.mu.Unlock()

	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next Token call fetches a new one.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()
}

// newSource binds the token endpoint to the client's http.Client. The fetch context is not the
// caller's: a cancelled request must not poison the shared cached source.
func (s *TokenSource) newSource() oauth2.TokenSource {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient)
	return oauth2.ReuseTokenSourceWithExpiry(nil, s.config.TokenSource(ctx), s.margin)
}
