package contextx

// Key is the type for request context keys so they cannot collide with keys
// set by other packages.
type Key string

const (
	// UserIDKey carries the session owner's user ID (string).
	UserIDKey Key = "userID"

	// SessionIDKey carries the raw session cookie value (string).
	SessionIDKey Key = "sessionID"
)
