package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	source "cadbridge/internal/source/iface"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Config configures the dispatch platform client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration
	// MaxRetries for 429, 5xx and transport failures (default: 3).
	MaxRetries int
	// RetryBackoff is the first retry delay, doubled on every further attempt (default: 100ms).
	RetryBackoff time.Duration

	RequestsPerSecond float64
	Burst             int

	// RefreshMargin is subtracted from the token lifetime so a credential is renewed before
	// the platform rejects it (default: 60s).
	RefreshMargin time.Duration

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst == 0 {
		c.Burst = 2
	}
	if c.RefreshMargin == 0 {
		c.RefreshMargin = 60 * time.Second
	}
}

// HTTPError is a non-2xx response from the platform.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func IsRateLimited(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return tokenErr.Response.StatusCode == http.StatusTooManyRequests || tokenErr.Response.StatusCode >= 500
	}
	return true
}

// Client is a rate-limited, retrying client for the dispatch platform REST API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *TokenSource
	now        func() time.Time
	logger     logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("source base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse source base url: %w", err)
	}
	cfg.applyDefaults()

	httpClient := &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		tokens:     NewTokenSource(httpClient, baseURL+"/oauth/token", cfg.ClientID, cfg.ClientSecret, cfg.RefreshMargin),
		now:        time.Now,
		logger:     log.With(logger.String("component", "source_client")),
	}, nil
}

var _ source.Source = (*Client)(nil)

func (c *Client) FetchRecent(ctx context.Context, daysBack int) ([]domain.RawIncident, error) {
	if daysBack <= 0 {
		daysBack = 1
	}
	to := c.now().UTC()
	from := to.AddDate(0, 0, -daysBack)
	query := url.Values{}
	query.Set("from", from.Format(time.RFC3339))
	query.Set("to", to.Format(time.RFC3339))

	body, err := c.get(ctx, "/calls", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent calls: %w", err)
	}
	incidents, err := decodeIncidents(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recent calls: %w", err)
	}
	c.logger.Debug("fetched recent calls",
		logger.Int("days_back", daysBack),
		logger.Int("count", len(incidents)))
	return incidents, nil
}

func (c *Client) FetchActive(ctx context.Context) ([]domain.RawIncident, error) {
	body, err := c.get(ctx, "/calls/active", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active calls: %w", err)
	}
	incidents, err := decodeIncidents(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode active calls: %w", err)
	}
	return incidents, nil
}

func (c *Client) FetchIncident(ctx context.Context, incidentID string) (domain.RawIncident, error) {
	body, err := c.get(ctx, "/calls/"+url.PathEscape(incidentID), nil)
	if err != nil {
		if isNotFound(err) {
			return domain.RawIncident{}, fmt.Errorf("call %s: %w", incidentID, source.ErrIncidentNotFound)
		}
		return domain.RawIncident{}, fmt.Errorf("failed to fetch call %s: %w", incidentID, err)
	}
	incident, err := decodeIncident(body)
	if err != nil {
		return domain.RawIncident{}, fmt.Errorf("failed to decode call %s: %w", incidentID, err)
	}
	if incident.ID == "" {
		incident.ID = incidentID
	}
	return incident, nil
}

func (c *Client) FetchExtra(ctx context.Context, incidentID string) (domain.ExtraData, error) {
	body, err := c.get(ctx, "/calls/"+url.PathEscape(incidentID)+"/extra", nil)
	if err != nil {
		if isNotFound(err) {
			return domain.ExtraData{}, fmt.Errorf("extra data for call %s: %w", incidentID, source.ErrIncidentNotFound)
		}
		return domain.ExtraData{}, fmt.Errorf("failed to fetch extra data for call %s: %w", incidentID, err)
	}
	extra, err := decodeExtra(body)
	if err != nil {
		return domain.ExtraData{}, fmt.Errorf("failed to decode extra data for call %s: %w", incidentID, err)
	}
	return extra, nil
}

func isNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// get performs one logical GET. A 401 invalidates the cached credential and replays the
// request once; that replay does not count against MaxRetries.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reauthenticated := false
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.doOnce(ctx, path, query)
		if err == nil {
			return body, nil
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized && !reauthenticated {
			c.logger.Warn("source rejected credential, refreshing",
				logger.String("path", path))
			c.tokens.Invalidate()
			reauthenticated = true
			continue
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * c.cfg.RetryBackoff
		c.logger.Debug("retrying source request",
			logger.String("path", path),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		attempt++
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Status, body)}
	}
	return body, nil
}

func errorMessage(status string, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
