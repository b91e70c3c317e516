package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kohaku-bot/kohaku/internal/database"
)

// postgresBackend stores the session pointer on the users.session_id column.
// There is no separate session table; at most one session per user is enforced
// by the column's unique constraint.
type postgresBackend struct {
	db database.DBTX
}

// NewPostgresBackend returns a Backend backed by the users relation.
func NewPostgresBackend(db database.DBTX) Backend {
	return &postgresBackend{db: db}
}

func (b *postgresBackend) Create(ctx context.Context, sessionID, userID string) error {
	sql := `UPDATE users SET session_id = $1, updated_at = now() WHERE user_id = $2`
	_, err := b.db.Exec(ctx, sql, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to stamp session: %w", err)
	}
	// Zero rows affected means the user row is gone; by contract this is a no-op.
	return nil
}

func (b *postgresBackend) Read(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNotFound
	}

	var userID string
	row := b.db.QueryRow(ctx, `SELECT user_id FROM users WHERE session_id = $1`, sessionID)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}

	return userID, nil
}

func (b *postgresBackend) Update(ctx context.Context, sessionID, userID string) error {
	return b.Create(ctx, sessionID, userID)
}

func (b *postgresBackend) Delete(ctx context.Context, sessionID string) error {
	sql := `UPDATE users SET session_id = NULL, updated_at = now() WHERE session_id = $1`
	if _, err := b.db.Exec(ctx, sql, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (b *postgresBackend) DeleteForUser(ctx context.Context, userID string) error {
	sql := `UPDATE users SET session_id = NULL, updated_at = now() WHERE user_id = $1`
	if _, err := b.db.Exec(ctx, sql, userID); err != nil {
		return fmt.Errorf("failed to delete user session: %w", err)
	}
	return nil
}
