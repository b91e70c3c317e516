package user

import (
	"context"
	"errors"
	"time"
)

// IssueCode fetches the user by Discord identity, creating them with a fresh
// verification code when absent. A verified user is returned unchanged; an
// unverified user gets their outstanding code replaced.
func (s *service) IssueCode(ctx context.Context, discordID, discordUsername string) (*User, bool, error) {
	existing, err := s.repo.FindByDiscordID(ctx, discordID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("issue code: find user failed", "discord_id", discordID, "error", err)
			return nil, false, ErrInternal.WithCause(err)
		}

		code, genErr := newVerificationCode()
		if genErr != nil {
			return nil, false, ErrInternal.WithCause(genErr)
		}
		userID, idErr := newUserID()
		if idErr != nil {
			return nil, false, ErrInternal.WithCause(idErr)
		}

		newUser := &User{
			UserID:           userID,
			DiscordID:        discordID,
			DiscordUsername:  discordUsername,
			Verified:         false,
			VerificationCode: &code,
		}
		if err := s.repo.Create(ctx, newUser); err != nil {
			s.logger.Error("issue code: create user failed", "discord_id", discordID, "error", err)
			return nil, false, ErrInternal.WithCause(err)
		}

		s.logger.Info("user created", "user_id", newUser.UserID, "discord_id", discordID)
		return newUser, false, nil
	}

	if existing.Verified {
		s.logger.Info("verified user requested a new code", "user_id", existing.UserID)
		return existing, true, nil
	}

	// Regenerating invalidates any prior outstanding code.
	code, err := newVerificationCode()
	if err != nil {
		return nil, false, ErrInternal.WithCause(err)
	}
	updated, err := s.repo.PartialUpdate(ctx, existing.UserID, UserUpdate{
		DiscordUsername:  Set(discordUsername),
		VerificationCode: Set(code),
	})
	if err != nil {
		s.logger.Error("issue code: update code failed", "user_id", existing.UserID, "error", err)
		return nil, false, ErrInternal.WithCause(err)
	}

	return updated, false, nil
}

// Verify is the unverified → verified transition. The steps are: look up by
// code, guard against replay, exchange the osu! authorization code, fetch the
// osu! identity, grant the role, then commit via the conditional MarkVerified
// and bind the session.
//
// Role grant and DB write are not wrapped in a cross-system transaction: a
// grant followed by a failed write leaves a transient inconsistency that the
// caller retries or an out-of-band reconciliation fixes.
func (s *service) Verify(ctx context.Context, kohakuCode, osuCode, sessionID string) (*User, error) {
	u, err := s.repo.FindByVerificationCode(ctx, kohakuCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("verify: lookup by code failed", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}

	// A failed exchange leaves the code outstanding; the user may retry.
	token, err := s.osu.ExchangeCode(ctx, osuCode)
	if err != nil {
		s.logger.Warn("verify: osu! code exchange rejected", "user_id", u.UserID, "error", err)
		return nil, ErrInvalidOsuCode.WithCause(err)
	}

	me, err := s.osu.Me(ctx, token)
	if err != nil {
		s.logger.Error("verify: osu! identity fetch failed", "user_id", u.UserID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if err := s.roles.GiveRole(ctx, u.DiscordID); err != nil {
		s.logger.Error("verify: role grant failed", "user_id", u.UserID, "discord_id", u.DiscordID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	updated, err := s.repo.MarkVerified(ctx, u.UserID, kohakuCode, MarkVerifiedParams{
		OsuID:          me.ID,
		OsuUsername:    me.Username,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresOn: token.ExpiresOn,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			return nil, ErrAlreadyVerified
		}
		s.logger.Error("verify: user update failed after role grant", "user_id", u.UserID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if err := s.sessions.Create(ctx, sessionID, updated.UserID); err != nil {
		s.logger.Error("verify: session creation failed", "user_id", updated.UserID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("user verified",
		"user_id", updated.UserID,
		"discord_id", updated.DiscordID,
		"osu_id", me.ID,
		"osu_username", me.Username,
	)

	return updated, nil
}

// Deauthenticate is the verified → unverified transition. The provider-side
// token revocation is best effort: the local state transition completes even
// when the provider call fails, so a dead token can never pin a user in the
// verified state.
func (s *service) Deauthenticate(ctx context.Context, discordID, sessionID string, revokeRole bool) (*User, error) {
	u, err := s.repo.FindByDiscordID(ctx, discordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("deauth: find user failed", "discord_id", discordID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if !u.Verified {
		return nil, ErrNotVerified
	}

	if err := s.osu.RevokeToken(ctx, u.UserID); err != nil {
		s.logger.Error("deauth: token revocation failed, clearing local state anyway", "user_id", u.UserID, "error", err)
	}

	updated, err := s.repo.PartialUpdate(ctx, u.UserID, UserUpdate{
		OsuID:          Null[int64](),
		OsuUsername:    Null[string](),
		Verified:       Set(false),
		AccessToken:    Null[string](),
		RefreshToken:   Null[string](),
		TokenExpiresOn: Null[time.Time](),
		SessionID:      Null[string](),
	})
	if err != nil {
		s.logger.Error("deauth: user update failed", "user_id", u.UserID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Error("deauth: session delete failed", "user_id", u.UserID, "error", err)
		}
	}
	// Callers like the member-remove handler know the user but not the
	// session, so revoke by user as well.
	if err := s.sessions.DeleteForUser(ctx, u.UserID); err != nil {
		s.logger.Error("deauth: user session delete failed", "user_id", u.UserID, "error", err)
	}

	if revokeRole {
		if err := s.roles.RemoveRole(ctx, discordID); err != nil {
			s.logger.Error("deauth: role removal failed", "user_id", u.UserID, "discord_id", discordID, "error", err)
		}
	}

	s.logger.Info("user deauthenticated", "user_id", u.UserID, "discord_id", discordID, "revoke_role", revokeRole)

	return updated, nil
}

// FetchByID returns the user for an already-authenticated request. A session
// pointing at a vanished row reads as an invalid session, not an internal fault.
func (s *service) FetchByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidSession.WithCause(err)
		}
		return nil, ErrInternal.WithCause(err)
	}
	return u, nil
}
