// Package auth implements the Parceline OAuth token lifecycle:
// credential exchange (password or client-credentials grant), a cached
// bearer token served until shortly before its expiry, and a
// best-effort refresh-token path that silently falls back to full
// re-authentication.
package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Token is a cached bearer token together with its refresh credentials.
type Token struct {
	AccessToken   string    `json:"access_token"`
	Expiry        time.Time `json:"expiry"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"refresh_expiry,omitempty"`
}

// Valid reports whether the access token may still be served. A token
// is valid only strictly before expiry minus the buffer, so callers
// renew before the provider starts rejecting it.
func (t Token) Valid(now time.Time, buffer time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.Expiry.Add(-buffer))
}

// CanRefresh reports whether the refresh-token path is worth trying.
func (t Token) CanRefresh(now time.Time) bool {
	if t.RefreshToken == "" {
		return false
	}
	return t.RefreshExpiry.IsZero() || now.Before(t.RefreshExpiry)
}

// MarshalBinary lets a Token round-trip through byte stores.
func (t Token) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalBinary decodes a Token produced by MarshalBinary.
func (t *Token) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

// Store holds at most one token. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context) (Token, error)
	Put(ctx context.Context, t Token) error
	Clear(ctx context.Context) error
}

// memoryStore is the default single-process store.
type memoryStore struct {
	mu sync.Mutex
	t  Token
}

// NewMemoryStore creates an in-process token store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Get(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t, nil
}

func (s *memoryStore) Put(ctx context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = Token{}
	return nil
}
