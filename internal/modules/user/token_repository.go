package user

import (
	"context"
	"errors"
	"time"

	"github.com/kohaku-bot/kohaku/internal/osuapi"
)

// tokenRepository satisfies osuapi.TokenStore on top of the user repository,
// so the osu! client can treat the users relation as its token cache without
// knowing the user schema.
type tokenRepository struct {
	repo Repository
}

// NewTokenRepository returns an osuapi.TokenStore backed by the user repository.
func NewTokenRepository(repo Repository) osuapi.TokenStore {
	return &tokenRepository{repo: repo}
}

// Exists reports whether the user exists and has an access token stored.
func (t *tokenRepository) Exists(ctx context.Context, userID string) (bool, error) {
	u, err := t.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.AccessToken != nil, nil
}

// Get reconstructs the stored token value object, or ErrTokenNotFound when
// the user is absent or holds no token.
func (t *tokenRepository) Get(ctx context.Context, userID string) (*osuapi.Token, error) {
	u, err := t.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, osuapi.ErrTokenNotFound
		}
		return nil, err
	}
	if u.AccessToken == nil || u.RefreshToken == nil {
		return nil, osuapi.ErrTokenNotFound
	}

	token := &osuapi.Token{
		AccessToken:  *u.AccessToken,
		RefreshToken: *u.RefreshToken,
	}
	if u.TokenExpiresOn != nil {
		token.ExpiresOn = *u.TokenExpiresOn
	}
	if u.OsuID != nil {
		token.OwnerID = *u.OsuID
	}

	return token, nil
}

// Add persists the token fields and the osu! identity onto the existing user
// row. Token storage never inserts a user; the row always exists from the
// Discord side first.
func (t *tokenRepository) Add(ctx context.Context, userID string, token *osuapi.Token) error {
	return t.put(ctx, userID, token)
}

// Update replaces the stored token fields, e.g. after a refresh.
func (t *tokenRepository) Update(ctx context.Context, userID string, token *osuapi.Token) error {
	return t.put(ctx, userID, token)
}

func (t *tokenRepository) put(ctx context.Context, userID string, token *osuapi.Token) error {
	update := UserUpdate{
		AccessToken:    Set(token.AccessToken),
		RefreshToken:   Set(token.RefreshToken),
		TokenExpiresOn: Set(token.ExpiresOn),
	}
	if token.OwnerID != 0 {
		update.OsuID = Set(token.OwnerID)
	}

	_, err := t.repo.PartialUpdate(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return osuapi.ErrTokenNotFound
		}
		return err
	}
	return nil
}

// Delete clears the token fields and everything that depends on them:
// verified, verification code, osu! identity and session. Token revocation
// must propagate to the verification state rather than leave a
// half-authenticated record.
func (t *tokenRepository) Delete(ctx context.Context, userID string) error {
	_, err := t.repo.PartialUpdate(ctx, userID, UserUpdate{
		OsuID:            Null[int64](),
		OsuUsername:      Null[string](),
		Verified:         Set(false),
		VerificationCode: Null[string](),
		AccessToken:      Null[string](),
		RefreshToken:     Null[string](),
		TokenExpiresOn:   Null[time.Time](),
		SessionID:        Null[string](),
	})
	if err != nil {
		// Deleting credentials for a vanished user is a no-op.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}
