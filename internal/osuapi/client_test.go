package osuapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory TokenStore for client tests.
type memStore struct {
	mu      sync.Mutex
	tokens  map[string]*Token
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{tokens: make(map[string]*Token)}
}

func (s *memStore) Exists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[userID]
	return ok, nil
}

func (s *memStore) Get(_ context.Context, userID string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[userID]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) Add(_ context.Context, userID string, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[userID] = &cp
	return nil
}

func (s *memStore) Update(ctx context.Context, userID string, token *Token) error {
	return s.Add(ctx, userID, token)
}

func (s *memStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, store TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		ClientID:     42,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		AuthURL:      srv.URL + "/oauth/authorize",
		TokenURL:     srv.URL + "/oauth/token",
		APIURL:       srv.URL + "/api/v2",
	}, store, slog.New(slog.DiscardHandler))
	c.SetHTTPClient(srv.Client())
	return c
}

func writeTokenResponse(w http.ResponseWriter, accessToken string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"refresh_token": "refresh-token",
		"token_type":    "Bearer",
		"expires_in":    86400,
	})
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		writeTokenResponse(w, "access-token")
	})
	c := newTestClient(t, mux, newMemStore())

	token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token.AccessToken)
	assert.Equal(t, "refresh-token", token.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), token.ExpiresOn, time.Minute)
	assert.Zero(t, token.OwnerID)
}

func TestExchangeCodeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	c := newTestClient(t, mux, newMemStore())

	_, err := c.ExchangeCode(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":124493,"username":"Cookiezi","playmode":"osu"}`))
	})
	c := newTestClient(t, mux, newMemStore())

	me, err := c.Me(context.Background(), &Token{AccessToken: "access-token"})
	require.NoError(t, err)
	assert.Equal(t, int64(124493), me.ID)
	assert.Equal(t, "Cookiezi", me.Username)
}

func TestRevokeTokenDeletesStored(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Add(context.Background(), "user-1", &Token{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
	}))

	var revokeCalled bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/oauth/tokens/current", func(w http.ResponseWriter, r *http.Request) {
		revokeCalled = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux, store)

	require.NoError(t, c.RevokeToken(context.Background(), "user-1"))
	assert.True(t, revokeCalled)
	assert.Equal(t, []string{"user-1"}, store.deleted)
}

func TestRevokeTokenRemoteFailureStillDeletes(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Add(context.Background(), "user-1", &Token{
		AccessToken: "access-token",
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/oauth/tokens/current", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, mux, store)

	err := c.RevokeToken(context.Background(), "user-1")
	assert.Error(t, err)
	assert.Equal(t, []string{"user-1"}, store.deleted)
}

func TestTokenSourcePersistsRefresh(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Add(context.Background(), "user-1", &Token{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		ExpiresOn:    time.Now().Add(-time.Hour),
		OwnerID:      124493,
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-token", r.PostForm.Get("refresh_token"))
		writeTokenResponse(w, "fresh-token")
	})
	c := newTestClient(t, mux, store)

	got, err := c.TokenSource(context.Background(), "user-1").Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got.AccessToken)

	stored, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, int64(124493), stored.OwnerID)
}
