package user

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/kohaku-bot/kohaku/internal/database"
)

// Repository defines the database operations for the user module.
// This abstraction allows the service layer to be independent of the database
// implementation.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, userID string) (*User, error)
	FindByDiscordID(ctx context.Context, discordID string) (*User, error)
	FindByVerificationCode(ctx context.Context, code string) (*User, error)
	FindBySessionID(ctx context.Context, sessionID string) (*User, error)

	// PartialUpdate writes only the set fields of the update and returns the
	// resulting row.
	PartialUpdate(ctx context.Context, userID string, update UserUpdate) (*User, error)

	// MarkVerified is the atomic commit point of the verification flow. It
	// flips verified and stores the osu! identity and tokens in a single
	// conditional update guarded on the verification code and verified=false,
	// so exactly one of two racing verify calls can win.
	MarkVerified(ctx context.Context, userID, code string, params MarkVerifiedParams) (*User, error)
}

// repository implements the Repository interface using pgx and squirrel.
// Lookups go through reader so they can hit a replica; every mutation goes
// through db, the primary.
type repository struct {
	db     database.DBTX
	reader database.DBTX
	psql   squirrel.StatementBuilderType
}

// NewRepository creates a new user repository. Pass the same handle twice when
// there is no read replica.
func NewRepository(db, reader database.DBTX) Repository {
	if reader == nil {
		reader = db
	}
	return &repository{
		db:     db,
		reader: reader,
		psql:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}
