package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read when no session exists for the given ID.
// Callers must treat it as "anonymous", never as a request-aborting fault.
var ErrNotFound = errors.New("session not found")

// Backend maps an opaque session identifier to the owning user's ID.
//
// The backend stores and retrieves only the pointer; the invariant that every
// live session belongs to a verified user is produced and maintained by the
// verification service.
type Backend interface {
	// Create binds sessionID to userID. Creating a session for a user that no
	// longer exists is a silent no-op: creation always follows a successful
	// verification, so absence indicates a race the caller must not crash on.
	Create(ctx context.Context, sessionID, userID string) error

	// Read returns the user ID bound to sessionID, or ErrNotFound when the
	// session is absent or stale.
	Read(ctx context.Context, sessionID string) (string, error)

	// Update re-binds an existing session to the given user ID.
	Update(ctx context.Context, sessionID, userID string) error

	// Delete removes the session. It is idempotent.
	Delete(ctx context.Context, sessionID string) error

	// DeleteForUser removes whatever session is bound to userID, for callers
	// that know the user but not the session, like the member-remove path.
	// It is idempotent.
	DeleteForUser(ctx context.Context, userID string) error
}

// NewID returns a new opaque session identifier: a "kohaku:" prefix followed
// by 32 random bytes, base64url-encoded without padding.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return "kohaku:" + base64.RawURLEncoding.EncodeToString(b), nil
}
