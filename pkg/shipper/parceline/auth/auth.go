package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// GrantType selects the credential exchange flow.
type GrantType string

const (
	GrantPassword          GrantType = "password"
	GrantClientCredentials GrantType = "client_credentials"
)

// Sentinel errors distinguishing why a credential exchange was
// rejected, so callers can decide between credential correction and
// backing off.
var (
	ErrUnauthorized = errors.New("auth: credentials rejected")
	ErrForbidden    = errors.New("auth: access forbidden")
	ErrRateLimited  = errors.New("auth: token endpoint rate limited")
)

// Error wraps a failed credential exchange with the provider's status
// and response body.
type Error struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (status %d): %s", e.Err, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DefaultExpiryBuffer is how long before the hard expiry a token stops
// being served.
const DefaultExpiryBuffer = 120 * time.Second

// Config configures a TokenSource.
type Config struct {
	TokenURL string
	Grant    GrantType

	ClientID     string
	ClientSecret string
	Username     string // password grant only
	Password     string // password grant only
	Scope        string

	// ExpiryBuffer defaults to DefaultExpiryBuffer when zero.
	ExpiryBuffer time.Duration

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Store defaults to an in-process store.
	Store Store

	// Now is the time source, injectable for tests.
	Now func() time.Time

	// OnExchange, when set, observes every credential exchange:
	// grant is "password", "client_credentials" or "refresh_token".
	OnExchange func(grant string, err error)

	Logger *otelzap.Logger
}

// TokenSource serves cached bearer tokens and renews them when they
// fall inside the expiry buffer. Concurrent renewals are collapsed
// into a single credential exchange.
type TokenSource struct {
	cfg   Config
	group singleflight.Group
}

// New creates a TokenSource.
func New(cfg Config) *TokenSource {
	if cfg.Grant == "" {
		cfg.Grant = GrantClientCredentials
	}
	if cfg.ExpiryBuffer == 0 {
		cfg.ExpiryBuffer = DefaultExpiryBuffer
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = otelzap.New(zap.NewNop())
	}
	return &TokenSource{cfg: cfg}
}

// Token returns a bearer token, performing a credential exchange only
// when no cached token is valid.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	cached, err := s.cfg.Store.Get(ctx)
	if err != nil {
		s.cfg.Logger.Warn("Token store read failed, re-authenticating", zap.Error(err))
		cached = Token{}
	}
	if cached.Valid(s.cfg.Now(), s.cfg.ExpiryBuffer) {
		return cached.AccessToken, nil
	}

	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		return s.renew(ctx, cached)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call re-authenticates.
// Called when the provider rejects a bearer token on a business call.
func (s *TokenSource) Invalidate(ctx context.Context) error {
	return s.cfg.Store.Clear(ctx)
}

// renew obtains a fresh token, trying the refresh-token path first.
// Refresh failures are non-fatal and fall through to a full exchange.
func (s *TokenSource) renew(ctx context.Context, cached Token) (string, error) {
	// Another caller may have renewed while we waited on singleflight.
	if t, err := s.cfg.Store.Get(ctx); err == nil && t.Valid(s.cfg.Now(), s.cfg.ExpiryBuffer) {
		return t.AccessToken, nil
	}

	if cached.CanRefresh(s.cfg.Now()) {
		tok, err := s.exchange(ctx, s.refreshForm(cached.RefreshToken), "refresh_token")
		if err == nil {
			return s.save(ctx, tok)
		}
		s.cfg.Logger.Debug("Refresh token rejected, falling back to full exchange",
			zap.Error(err))
	}

	tok, err := s.exchange(ctx, s.grantForm(), string(s.cfg.Grant))
	if err != nil {
		return "", err
	}
	return s.save(ctx, tok)
}

func (s *TokenSource) save(ctx context.Context, tok Token) (string, error) {
	if err := s.cfg.Store.Put(ctx, tok); err != nil {
		// A write failure costs an extra exchange next call, nothing more.
		s.cfg.Logger.Warn("Token store write failed", zap.Error(err))
	}
	return tok.AccessToken, nil
}

func (s *TokenSource) grantForm() url.Values {
	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	if s.cfg.ClientSecret != "" {
		form.Set("client_secret", s.cfg.ClientSecret)
	}
	if s.cfg.Scope != "" {
		form.Set("scope", s.cfg.Scope)
	}
	switch s.cfg.Grant {
	case GrantPassword:
		form.Set("grant_type", "password")
		form.Set("username", s.cfg.Username)
		form.Set("password", s.cfg.Password)
	default:
		form.Set("grant_type", "client_credentials")
	}
	return form
}

func (s *TokenSource) refreshForm(refreshToken string) url.Values {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", s.cfg.ClientID)
	if s.cfg.ClientSecret != "" {
		form.Set("client_secret", s.cfg.ClientSecret)
	}
	return form
}

// tokenResponse is the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
}

// exchange posts the form to the token endpoint and maps the response
// into an absolute-expiry Token.
func (s *TokenSource) exchange(ctx context.Context, form url.Values, grant string) (Token, error) {
	tok, err := s.exchangeRaw(ctx, form)
	if s.cfg.OnExchange != nil {
		s.cfg.OnExchange(grant, err)
	}
	return tok, err
}

func (s *TokenSource) exchangeRaw(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("auth: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, &Error{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("auth: token response carried no access token")
	}

	now := s.cfg.Now()
	tok := Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		// Provider omitted expires_in; treat as short-lived.
		tok.Expiry = now.Add(5 * time.Minute)
	}
	if tr.RefreshToken != "" && tr.RefreshExpiresIn > 0 {
		tok.RefreshExpiry = now.Add(time.Duration(tr.RefreshExpiresIn) * time.Second)
	}
	return tok, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("auth: token endpoint returned status %d", status)
	}
}
