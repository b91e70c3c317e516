package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var readColumns = []string{
	"user_id", "discord_id", "discord_username",
	"osu_id", "osu_username",
	"verified", "verification_code",
	"access_token", "refresh_token", "token_expires_on",
	"session_id",
	"created_at", "updated_at",
}

func returning() string {
	return "RETURNING " + strings.Join(readColumns, ", ")
}

// Create inserts a new user record into the database.
func (r *repository) Create(ctx context.Context, user *User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	query, args, err := r.psql.Insert("users").
		Columns("user_id", "discord_id", "discord_username", "verified", "verification_code", "created_at", "updated_at").
		Values(user.UserID, user.DiscordID, user.DiscordUsername, user.Verified, user.VerificationCode, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	return nil
}

// FindByID retrieves a user by their unique ID.
func (r *repository) FindByID(ctx context.Context, userID string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"user_id": userID})
}

// FindByDiscordID retrieves a user by their Discord identity.
func (r *repository) FindByDiscordID(ctx context.Context, discordID string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"discord_id": discordID})
}

// FindByVerificationCode retrieves a user by their active verification code.
func (r *repository) FindByVerificationCode(ctx context.Context, code string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"verification_code": code})
}

// FindBySessionID retrieves a user by their active session.
func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"session_id": sessionID})
}

// findOne is a helper method to find a single user by a given condition.
// It returns ErrNotFound if no user matches.
func (r *repository) findOne(ctx context.Context, condition squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(readColumns...).
		From("users").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.reader, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &user, nil
}

// PartialUpdate writes only the set fields of the update, bumps updated_at,
// and returns the resulting row. It returns ErrNotFound when the user is gone.
func (r *repository) PartialUpdate(ctx context.Context, userID string, update UserUpdate) (*User, error) {
	q := r.psql.Update("users").Set("updated_at", time.Now())

	if update.DiscordUsername.IsSet() {
		q = q.Set("discord_username", update.DiscordUsername.Ptr())
	}
	if update.OsuID.IsSet() {
		q = q.Set("osu_id", update.OsuID.Ptr())
	}
	if update.OsuUsername.IsSet() {
		q = q.Set("osu_username", update.OsuUsername.Ptr())
	}
	if update.Verified.IsSet() {
		q = q.Set("verified", update.Verified.Ptr())
	}
	if update.VerificationCode.IsSet() {
		q = q.Set("verification_code", update.VerificationCode.Ptr())
	}
	if update.AccessToken.IsSet() {
		q = q.Set("access_token", update.AccessToken.Ptr())
	}
	if update.RefreshToken.IsSet() {
		q = q.Set("refresh_token", update.RefreshToken.Ptr())
	}
	if update.TokenExpiresOn.IsSet() {
		q = q.Set("token_expires_on", update.TokenExpiresOn.Ptr())
	}
	if update.SessionID.IsSet() {
		q = q.Set("session_id", update.SessionID.Ptr())
	}

	query, args, err := q.
		Where(squirrel.Eq{"user_id": userID}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &user, nil
}

// MarkVerified performs the conditional verified transition. The WHERE clause
// on verification_code and verified=false is the idempotency guard: the loser
// of a double-submit race matches no row and gets ErrAlreadyVerified.
func (r *repository) MarkVerified(ctx context.Context, userID, code string, params MarkVerifiedParams) (*User, error) {
	query, args, err := r.psql.Update("users").
		Set("osu_id", params.OsuID).
		Set("osu_username", params.OsuUsername).
		Set("verified", true).
		Set("access_token", params.AccessToken).
		Set("refresh_token", params.RefreshToken).
		Set("token_expires_on", params.TokenExpiresOn).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": userID, "verification_code": code, "verified": false}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The caller just looked the row up, so a miss here means the
			// guard condition no longer holds: someone else won the race.
			return nil, ErrAlreadyVerified.WithCause(err)
		}
		return nil, err
	}

	return &user, nil
}
