package osuapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// Config holds the osu! OAuth application credentials and endpoints.
type Config struct {
	ClientID     int
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
}

// Me is the subset of the osu! "get own data" response the service needs.
type Me struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Client talks to the osu! OAuth provider and API v2. Stored credentials are
// read and written through the injected TokenStore.
type Client struct {
	oauth  *oauth2.Config
	store  TokenStore
	apiURL string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a new osu! API client.
func NewClient(cfg Config, store TokenStore, logger *slog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     strconv.Itoa(cfg.ClientID),
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: []string{"identify"},
		},
		store:  store,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   http.DefaultClient,
		logger: logger,
	}
}

// ExchangeCode exchanges an authorization code for an access/refresh token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return fromOAuth2(token, 0), nil
}

// Me fetches the identity that owns the given token.
func (c *Client) Me(ctx context.Context, token *Token) (*Me, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch osu! identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osu! identity request returned status %d", resp.StatusCode)
	}

	var me Me
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("failed to decode osu! identity: %w", err)
	}
	return &me, nil
}

// RevokeToken revokes the user's current token with the provider and deletes
// the stored credentials. The store delete runs even when the provider-side
// revocation fails; the returned error then reports the remote failure.
func (c *Client) RevokeToken(ctx context.Context, userID string) error {
	token, err := c.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	revokeErr := c.revokeCurrent(ctx, token)

	if err := c.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete stored token: %w", err)
	}

	return revokeErr
}

func (c *Client) revokeCurrent(ctx context.Context, token *Token) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiURL+"/oauth/tokens/current", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token revocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("token revocation returned status %d", resp.StatusCode)
	}
	return nil
}

// TokenSource returns an oauth2.TokenSource for a stored user. Refreshed
// tokens are written back through the TokenStore so the stored credentials
// stay current.
func (c *Client) TokenSource(ctx context.Context, userID string) oauth2.TokenSource {
	return &storeTokenSource{client: c, ctx: ctx, userID: userID}
}

type storeTokenSource struct {
	client *Client
	ctx    context.Context
	userID string
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	stored, err := s.client.store.Get(s.ctx, s.userID)
	if err != nil {
		return nil, err
	}

	ctx := context.WithValue(s.ctx, oauth2.HTTPClient, s.client.http)
	fresh, err := s.client.oauth.TokenSource(ctx, toOAuth2(stored)).Token()
	if err != nil {
		return nil, err
	}

	if fresh.AccessToken != stored.AccessToken {
		if err := s.client.store.Update(s.ctx, s.userID, fromOAuth2(fresh, stored.OwnerID)); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
		s.client.logger.Info("refreshed osu! token", "user_id", s.userID)
	}

	return fresh, nil
}

// SetHTTPClient overrides the HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}
