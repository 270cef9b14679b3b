package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/claude/fitlog/internal/storage"
)

// TokenKey is the backend key the OAuth credential is persisted under.
const TokenKey = "strava_tokens"

// storedToken is the persisted credential shape. ExpiresAt is unix seconds.
type storedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// TokenStore persists the OAuth credential through a storage backend.
type TokenStore struct {
	backend storage.Backend
}

// NewTokenStore creates a TokenStore over backend.
func NewTokenStore(backend storage.Backend) *TokenStore {
	return &TokenStore{backend: backend}
}

// Load returns the stored token, or nil when none is stored.
func (s *TokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	data, err := s.backend.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	if st.RefreshToken == "" && st.AccessToken == "" {
		return nil, nil
	}
	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    "Bearer",
	}
	if st.ExpiresAt > 0 {
		tok.Expiry = time.Unix(st.ExpiresAt, 0)
	}
	return tok, nil
}

// Save persists tok.
func (s *TokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	st := storedToken{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		st.ExpiresAt = tok.Expiry.Unix()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := s.backend.Put(ctx, TokenKey, data); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}
