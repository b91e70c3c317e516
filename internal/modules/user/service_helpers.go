package user

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// newVerificationCode returns a fresh one-time code: 32 random bytes,
// base64url-encoded without padding. Codes are unique process-wide for all
// practical purposes given this entropy.
func newVerificationCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newUserID returns a new time-ordered surrogate key.
func newUserID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
