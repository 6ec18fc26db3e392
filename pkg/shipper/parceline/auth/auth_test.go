package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopmesh/parceline-bridge/pkg/shipper/parceline/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenServer fakes the provider's OAuth endpoint and counts exchanges
// by grant type.
type tokenServer struct {
	mu            sync.Mutex
	counts        map[string]int
	rejectRefresh bool
	status        int // when non-zero, every request fails with it

	expiresIn        int
	refreshToken     string
	refreshExpiresIn int
}

func newTokenServer() *tokenServer {
	return &tokenServer{
		counts:    map[string]int{},
		expiresIn: 3600,
	}
}

func (ts *tokenServer) count(grant string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.counts[grant]
}

func (ts *tokenServer) total() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	n := 0
	for _, c := range ts.counts {
		n += c
	}
	return n
}

func (ts *tokenServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grant := r.PostForm.Get("grant_type")

		ts.mu.Lock()
		ts.counts[grant]++
		status := ts.status
		rejectRefresh := ts.rejectRefresh
		ts.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"rejected"}`))
			return
		}
		if grant == "refresh_token" && rejectRefresh {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		resp := map[string]interface{}{
			"access_token": "tok-" + grant,
			"token_type":   "Bearer",
			"expires_in":   ts.expiresIn,
		}
		if ts.refreshToken != "" {
			resp["refresh_token"] = ts.refreshToken
			resp["refresh_expires_in"] = ts.refreshExpiresIn
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newSource(ts *httptest.Server, now *time.Time, extra func(*auth.Config)) *auth.TokenSource {
	cfg := auth.Config{
		TokenURL:     ts.URL,
		Grant:        auth.GrantClientCredentials,
		ClientID:     "client",
		ClientSecret: "secret",
		Now:          func() time.Time { return *now },
	}
	if extra != nil {
		extra(&cfg)
	}
	return auth.New(cfg)
}

func TestTokenSource_SingleExchangeWithinValidity(t *testing.T) {
	ts := newTokenServer()
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		tok, err := source.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-client_credentials", tok)
	}

	assert.Equal(t, 1, ts.total(), "cached token should be served without new exchanges")
}

func TestTokenSource_RenewsAfterExpiryBuffer(t *testing.T) {
	ts := newTokenServer()
	ts.expiresIn = 600
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, func(c *auth.Config) {
		c.ExpiryBuffer = 120 * time.Second
	})

	ctx := context.Background()
	_, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.total())

	// Still inside expiry minus buffer: served from cache.
	now = now.Add(7 * time.Minute)
	_, err = source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.total())

	// Past expiry minus buffer: exactly one new exchange.
	now = now.Add(2 * time.Minute)
	tok, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-client_credentials", tok)
	assert.Equal(t, 2, ts.total())
}

func TestTokenSource_RefreshPathUsedWhenAvailable(t *testing.T) {
	ts := newTokenServer()
	ts.expiresIn = 600
	ts.refreshToken = "refresh-1"
	ts.refreshExpiresIn = 86400
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, nil)

	ctx := context.Background()
	_, err := source.Token(ctx)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	tok, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-refresh_token", tok)
	assert.Equal(t, 1, ts.count("client_credentials"))
	assert.Equal(t, 1, ts.count("refresh_token"))
}

func TestTokenSource_RefreshFailureFallsBackToFullExchange(t *testing.T) {
	ts := newTokenServer()
	ts.expiresIn = 600
	ts.refreshToken = "refresh-1"
	ts.refreshExpiresIn = 86400
	ts.rejectRefresh = true
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, nil)

	ctx := context.Background()
	_, err := source.Token(ctx)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	tok, err := source.Token(ctx)
	require.NoError(t, err, "refresh rejection must not surface")
	assert.Equal(t, "tok-client_credentials", tok)
	assert.Equal(t, 1, ts.count("refresh_token"))
	assert.Equal(t, 2, ts.count("client_credentials"))
}

func TestTokenSource_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, auth.ErrUnauthorized},
		{http.StatusForbidden, auth.ErrForbidden},
		{http.StatusTooManyRequests, auth.ErrRateLimited},
	}

	for _, tt := range tests {
		ts := newTokenServer()
		ts.status = tt.status
		srv := httptest.NewServer(ts.handler(t))

		now := time.Now()
		source := newSource(srv, &now, nil)

		_, err := source.Token(context.Background())
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		var authErr *auth.Error
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, tt.status, authErr.StatusCode)

		srv.Close()
	}
}

func TestTokenSource_PasswordGrantForm(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type": r.PostForm.Get("grant_type"),
			"username":   r.PostForm.Get("username"),
			"password":   r.PostForm.Get("password"),
			"client_id":  r.PostForm.Get("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-pw",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	now := time.Now()
	source := auth.New(auth.Config{
		TokenURL: srv.URL,
		Grant:    auth.GrantPassword,
		ClientID: "client",
		Username: "merchant",
		Password: "hunter2",
		Now:      func() time.Time { return now },
	})

	tok, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-pw", tok)
	assert.Equal(t, "password", gotForm["grant_type"])
	assert.Equal(t, "merchant", gotForm["username"])
	assert.Equal(t, "hunter2", gotForm["password"])
	assert.Equal(t, "client", gotForm["client_id"])
}

func TestTokenSource_InvalidateForcesReauth(t *testing.T) {
	ts := newTokenServer()
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, nil)

	ctx := context.Background()
	_, err := source.Token(ctx)
	require.NoError(t, err)
	require.NoError(t, source.Invalidate(ctx))

	_, err = source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.total())
}

func TestTokenSource_ExchangeObserver(t *testing.T) {
	ts := newTokenServer()
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	var grants []string
	var errs []error
	now := time.Now()
	source := newSource(srv, &now, func(c *auth.Config) {
		c.OnExchange = func(grant string, err error) {
			grants = append(grants, grant)
			errs = append(errs, err)
		}
	})

	_, err := source.Token(context.Background())
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "client_credentials", grants[0])
	assert.NoError(t, errs[0])
}

func TestToken_Valid(t *testing.T) {
	now := time.Now()
	tok := auth.Token{
		AccessToken: "abc",
		Expiry:      now.Add(10 * time.Minute),
	}

	assert.True(t, tok.Valid(now, 2*time.Minute))
	assert.False(t, tok.Valid(now.Add(8*time.Minute), 2*time.Minute),
		"token inside the buffer window must not be served")
	assert.False(t, auth.Token{}.Valid(now, 0), "empty token is never valid")
}

func TestToken_CanRefresh(t *testing.T) {
	now := time.Now()

	assert.False(t, auth.Token{}.CanRefresh(now))
	assert.True(t, auth.Token{RefreshToken: "r"}.CanRefresh(now),
		"refresh token without expiry is usable")
	assert.True(t, auth.Token{RefreshToken: "r", RefreshExpiry: now.Add(time.Hour)}.CanRefresh(now))
	assert.False(t, auth.Token{RefreshToken: "r", RefreshExpiry: now.Add(-time.Hour)}.CanRefresh(now))
}

func TestTokenSource_StoreErrorTriggersReauth(t *testing.T) {
	ts := newTokenServer()
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	now := time.Now()
	source := newSource(srv, &now, func(c *auth.Config) {
		c.Store = failingStore{}
	})

	tok, err := source.Token(context.Background())
	require.NoError(t, err, "store failures must not block token acquisition")
	assert.Equal(t, "tok-client_credentials", tok)
}

type failingStore struct{}

func (failingStore) Get(context.Context) (auth.Token, error) {
	return auth.Token{}, errors.New("store down")
}
func (failingStore) Put(context.Context, auth.Token) error { return errors.New("store down") }
func (failingStore) Clear(context.Context) error           { return errors.New("store down") }
