package user

import (
	"context"
	"net/http"
	"time"

	"github.com/kohaku-bot/kohaku/internal/contextx"
	"github.com/kohaku-bot/kohaku/internal/httpx"
	"github.com/kohaku-bot/kohaku/internal/session"
	"github.com/kohaku-bot/kohaku/internal/validation"
)

// --- DTOs (Data Transfer Objects) ---

// AuthRequest defines the structure for the verification completion request body.
type AuthRequest struct {
	Body struct {
		KohakuCode string `json:"kohaku_code,omitempty" validate:"required"`
		OsuCode    string `json:"osu_code,omitempty" validate:"required"`
	}
}

// UserBody is the public projection of a user record. Credentials and the
// verification code never appear in responses.
type UserBody struct {
	UserID          string    `json:"user_id"`
	DiscordID       string    `json:"discord_id"`
	DiscordUsername string    `json:"discord_username"`
	OsuID           *int64    `json:"osu_id"`
	OsuUsername     *string   `json:"osu_username"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuthResponse carries the verified user and binds the session cookie.
type AuthResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      UserBody
}

// DeauthResponse clears the session cookie and echoes the unlinked user.
type DeauthResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      UserBody
}

// GetUserResponse returns the authenticated user.
type GetUserResponse struct {
	Body UserBody
}

// --- Mapper ---

// toUserBody converts a domain User object to its public projection.
func toUserBody(u *User) UserBody {
	return UserBody{
		UserID:          u.UserID,
		DiscordID:       u.DiscordID,
		DiscordUsername: u.DiscordUsername,
		OsuID:           u.OsuID,
		OsuUsername:     u.OsuUsername,
		Verified:        u.Verified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// --- Handlers ---

// AuthHandler completes verification: it consumes the one-time verification
// code together with the osu! authorization code and binds a fresh session.
func (h *Handler) AuthHandler(ctx context.Context, input *AuthRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	sessionID, err := session.NewID()
	if err != nil {
		h.logger.Error("session id generation failed", "error", err)
		return nil, httpx.InternalProblem(ctx, "")
	}

	u, err := h.service.Verify(ctx, input.Body.KohakuCode, input.Body.OsuCode, sessionID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	return &AuthResponse{
		SetCookie: h.sessionCookie(sessionID),
		Body:      toUserBody(u),
	}, nil
}

// DeauthHandler unlinks the authenticated user and kills their session.
func (h *Handler) DeauthHandler(ctx context.Context, _ *struct{}) (*DeauthResponse, error) {
	userID, _ := ctx.Value(contextx.UserIDKey).(string)
	sessionID, _ := ctx.Value(contextx.SessionIDKey).(string)

	u, err := h.service.FetchByID(ctx, userID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	updated, err := h.service.Deauthenticate(ctx, u.DiscordID, sessionID, true)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	return &DeauthResponse{
		SetCookie: h.expiredSessionCookie(),
		Body:      toUserBody(updated),
	}, nil
}

// GetUserHandler returns the user bound to the presented session.
func (h *Handler) GetUserHandler(ctx context.Context, _ *struct{}) (*GetUserResponse, error) {
	userID, _ := ctx.Value(contextx.UserIDKey).(string)

	u, err := h.service.FetchByID(ctx, userID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	return &GetUserResponse{Body: toUserBody(u)}, nil
}
