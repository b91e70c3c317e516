package user

import (
	"context"
	"log/slog"

	"github.com/kohaku-bot/kohaku/internal/osuapi"
	"github.com/kohaku-bot/kohaku/internal/session"
)

// RoleManager mutates the privileged role on the chat platform. Implemented by
// the Discord bot adapter.
type RoleManager interface {
	GiveRole(ctx context.Context, discordID string) error
	RemoveRole(ctx context.Context, discordID string) error
}

// OsuClient is the slice of the osu! API client the service needs.
// Satisfied by *osuapi.Client.
type OsuClient interface {
	ExchangeCode(ctx context.Context, code string) (*osuapi.Token, error)
	Me(ctx context.Context, token *osuapi.Token) (*osuapi.Me, error)
	RevokeToken(ctx context.Context, userID string) error
}

// Service is the authoritative state machine for the unverified → verified →
// unverified cycle.
type Service interface {
	// IssueCode fetches or creates the user for the given Discord identity and
	// returns it together with a flag reporting whether the user was already
	// verified. For a verified user no new code is issued: the record comes
	// back unchanged with alreadyVerified=true.
	IssueCode(ctx context.Context, discordID, discordUsername string) (u *User, alreadyVerified bool, err error)

	// Verify consumes a verification code and an osu! authorization code,
	// links the identities, grants the role, and binds sessionID to the user.
	Verify(ctx context.Context, kohakuCode, osuCode, sessionID string) (*User, error)

	// Deauthenticate reverts a verified user to unverified: revokes the osu!
	// token (best effort), clears tokens, identity and session, and removes
	// the role when revokeRole is true. sessionID may carry the caller's
	// session for backends that do not store the pointer on the user row.
	Deauthenticate(ctx context.Context, discordID, sessionID string, revokeRole bool) (*User, error)

	// FetchByID returns the user for an already-authenticated request.
	FetchByID(ctx context.Context, userID string) (*User, error)
}

// service implements the Service interface.
type service struct {
	repo     Repository
	sessions session.Backend
	osu      OsuClient
	roles    RoleManager
	logger   *slog.Logger
}

// Config holds the dependencies for the user service.
type Config struct {
	Repo     Repository
	Sessions session.Backend
	Osu      OsuClient
	Roles    RoleManager
	Logger   *slog.Logger
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	return &service{
		repo:     cfg.Repo,
		sessions: cfg.Sessions,
		osu:      cfg.Osu,
		roles:    cfg.Roles,
		logger:   cfg.Logger,
	}
}
