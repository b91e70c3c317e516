package user

import (
	"time"
)

// User represents a linked account in the system: a Discord identity, the
// osu! identity it maps to once verified, and the credentials and session
// attached to that link. This is the aggregate root for the whole module.
type User struct {
	UserID           string     `db:"user_id" json:"user_id"`
	DiscordID        string     `db:"discord_id" json:"discord_id"`
	DiscordUsername  string     `db:"discord_username" json:"discord_username"`
	OsuID            *int64     `db:"osu_id" json:"osu_id"`
	OsuUsername      *string    `db:"osu_username" json:"osu_username"`
	Verified         bool       `db:"verified" json:"verified"`
	VerificationCode *string    `db:"verification_code" json:"-"`
	AccessToken      *string    `db:"access_token" json:"-"`
	RefreshToken     *string    `db:"refresh_token" json:"-"`
	TokenExpiresOn   *time.Time `db:"token_expires_on" json:"-"`
	SessionID        *string    `db:"session_id" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Field is a three-state optional used in partial updates: unspecified (leave
// the column alone), explicit null, or explicit value. The zero value means
// unspecified, so an empty UserUpdate changes nothing.
type Field[T any] struct {
	value *T
	set   bool
}

// Set returns a Field carrying an explicit value.
func Set[T any](v T) Field[T] {
	return Field[T]{value: &v, set: true}
}

// Null returns a Field carrying an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{set: true}
}

// IsSet reports whether the field participates in the update at all.
func (f Field[T]) IsSet() bool { return f.set }

// Ptr returns the value pointer; nil means explicit null.
func (f Field[T]) Ptr() *T { return f.value }

// UserUpdate describes a partial update of a user row. Only set fields are
// written; user_id, discord_id and created_at are immutable.
type UserUpdate struct {
	DiscordUsername  Field[string]
	OsuID            Field[int64]
	OsuUsername      Field[string]
	Verified         Field[bool]
	VerificationCode Field[string]
	AccessToken      Field[string]
	RefreshToken     Field[string]
	TokenExpiresOn   Field[time.Time]
	SessionID        Field[string]
}

// MarkVerifiedParams carries everything the atomic verified-transition writes.
type MarkVerifiedParams struct {
	OsuID          int64
	OsuUsername    string
	AccessToken    string
	RefreshToken   string
	TokenExpiresOn time.Time
}
