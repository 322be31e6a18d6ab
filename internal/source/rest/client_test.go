package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	source "cadbridge/internal/source/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	tokenCalls atomic.Int32
	calls      atomic.Int32
	tokens     []string
	// tokenStatus, when set, fails every token request with that status.
	tokenStatus int
	handler     func(w http.ResponseWriter, r *http.Request, call int32)
}

func (f *fakePlatform) serve(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		n := f.tokenCalls.Add(1)
		if f.tokenStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.tokenStatus)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		token := fmt.Sprintf("token-%d", n)
		if int(n) <= len(f.tokens) {
			token = f.tokens[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"expires_in":3600}`, token)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.handler(w, r, f.calls.Add(1))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:           baseURL,
		ClientID:          "id",
		ClientSecret:      "secret",
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             10,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, logger.NewNopLogger())
	require.Error(t, err)
}

func TestClient_CachesToken(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"1"}`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	for i := 0; i < 3; i++ {
		_, err := c.FetchIncident(context.Background(), "1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), platform.tokenCalls.Load())
	assert.Equal(t, int32(3), platform.calls.Load())
}

func TestClient_RefreshesTokenOnceOnUnauthorized(t *testing.T) {
	platform := &fakePlatform{tokens: []string{"stale", "fresh"}}
	platform.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":"7","nature":"FALL"}`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	incident, err := c.FetchIncident(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "FALL", incident.Nature)
	assert.Equal(t, int32(2), platform.tokenCalls.Load())
	assert.Equal(t, int32(2), platform.calls.Load())
}

func TestClient_UnauthorizedAfterRefreshFails(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchActive(context.Background())
	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, int32(2), platform.calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[]`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	incidents, err := c.FetchActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incidents)
	assert.Equal(t, int32(3), platform.calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusTooManyRequests)
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchActive(context.Background())
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(3), platform.calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad range")
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchRecent(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad range")
	assert.Equal(t, int32(1), platform.calls.Load())
}

func TestClient_FetchIncidentNotFound(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusNotFound)
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchIncident(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, source.IsIncidentNotFoundError(err))

	_, err = c.FetchExtra(context.Background(), "404")
	assert.True(t, source.IsIncidentNotFoundError(err))
}

func TestClient_FetchRecentSendsRange(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, "/calls", r.URL.Path)
		assert.Equal(t, "2025-05-02T12:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-05-05T12:00:00Z", r.URL.Query().Get("to"))
		fmt.Fprint(w, `{"Data":[{"id":1},{"id":"2","priority":{"id":1561}}]}`)
	}
	c := newTestClient(t, platform.serve(t).URL)
	c.now = func() time.Time { return time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC) }

	incidents, err := c.FetchRecent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "1", incidents[0].ID)
	assert.Equal(t, "1561", incidents[1].Priority.ID)
}

func TestClient_FetchExtra(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, "/calls/198513/extra", r.URL.Path)
		fmt.Fprint(w, `{"activity":[{"actor_type":"unit","unit_name":"M1","status":5,"timestamp":1746475200}],
			"dispatches":[{"actor_type":"unit","unit_name":"M1","location":"Station 3"}]}`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	extra, err := c.FetchExtra(context.Background(), "198513")
	require.NoError(t, err)
	require.Len(t, extra.Activity, 1)
	assert.Equal(t, domain.StatusEnRoute, extra.Activity[0].Status)
	assert.Equal(t, "2025-05-05T20:00:00Z", extra.Activity[0].Timestamp)
	assert.Equal(t, "Station 3", extra.Dispatches[0].Location)
}

func TestClient_WithoutCredentialsSendsNoAuthorization(t *testing.T) {
	platform := &fakePlatform{}
	platform.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	}
	srv := platform.serve(t)
	c, err := NewClient(Config{BaseURL: srv.URL}, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = c.FetchActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), platform.tokenCalls.Load())
}

func TestTokenSource_RenewsWithinRefreshMargin(t *testing.T) {
	platform := &fakePlatform{}
	srv := platform.serve(t)

	cached := NewTokenSource(srv.Client(), srv.URL+"/oauth/token", "id", "secret", time.Minute)
	for i := 0; i < 3; i++ {
		token, err := cached.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	}
	assert.Equal(t, int32(1), platform.tokenCalls.Load())

	// A margin longer than the one hour lifetime makes every token due for renewal.
	renewing := NewTokenSource(srv.Client(), srv.URL+"/oauth/token", "id", "secret", 2*time.Hour)
	first, err := renewing.Token(context.Background())
	require.NoError(t, err)
	second, err := renewing.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(3), platform.tokenCalls.Load())
}

func TestTokenSource_InvalidateFetchesNewToken(t *testing.T) {
	platform := &fakePlatform{}
	srv := platform.serve(t)
	tokens := NewTokenSource(srv.Client(), srv.URL+"/oauth/token", "id", "secret", 0)

	first, err := tokens.Token(context.Background())
	require.NoError(t, err)
	tokens.Invalidate()
	second, err := tokens.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, "token-2", second)
}

func TestClient_RejectedCredentialsAreNotRetried(t *testing.T) {
	platform := &fakePlatform{tokenStatus: http.StatusUnauthorized}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		fmt.Fprint(w, `{"id":"1"}`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchIncident(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, int32(1), platform.tokenCalls.Load())
	assert.Equal(t, int32(0), platform.calls.Load())
}

func TestClient_TokenEndpointOutageIsRetried(t *testing.T) {
	platform := &fakePlatform{tokenStatus: http.StatusServiceUnavailable}
	platform.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		fmt.Fprint(w, `{"id":"1"}`)
	}
	c := newTestClient(t, platform.serve(t).URL)

	_, err := c.FetchIncident(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, int32(3), platform.tokenCalls.Load())
}
