package osuapi

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned by a TokenStore when no credentials are stored
// for the given user.
var ErrTokenNotFound = errors.New("osuapi: token not found")

// Token is the credential set obtained from the osu! OAuth provider.
// OwnerID is the osu! account the token belongs to; it is zero until the
// identity has been fetched.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresOn    time.Time
	OwnerID      int64
}

// TokenStore is the persistence contract the client consumes to store and
// refresh credentials. Implementations are keyed by the local user ID, not the
// osu! account ID.
type TokenStore interface {
	// Exists reports whether credentials are stored for the user.
	Exists(ctx context.Context, userID string) (bool, error)

	// Get returns the stored credentials, or ErrTokenNotFound.
	Get(ctx context.Context, userID string) (*Token, error)

	// Add persists credentials for an existing user. It never creates a user.
	Add(ctx context.Context, userID string, token *Token) error

	// Update replaces the stored credentials, e.g. after a refresh.
	Update(ctx context.Context, userID string, token *Token) error

	// Delete removes the credentials and everything that depended on them;
	// a revoked token must not leave a half-authenticated record behind.
	Delete(ctx context.Context, userID string) error
}

func toOAuth2(t *Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresOn,
	}
}

func fromOAuth2(t *oauth2.Token, ownerID int64) *Token {
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresOn:    t.Expiry,
		OwnerID:      ownerID,
	}
}
