package user

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/kohaku-bot/kohaku/internal/config"
)

// Middleware is a huma operation middleware, the element type of
// huma.Middlewares.
type Middleware = func(huma.Context, func(huma.Context))

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
	cookie  config.SessionConfig
	auth    Middleware
}

// NewHandler creates a new handler for the user module. auth is the session
// middleware applied to the authenticated routes.
func NewHandler(service Service, logger *slog.Logger, cookie config.SessionConfig, auth Middleware) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		cookie:  cookie,
		auth:    auth,
	}
}

// RegisterRoutes sets up the routing for the user module.
// It defines all the API endpoints and connects them to their respective handler functions.
func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "post-auth",
		Method:      http.MethodPost,
		Path:        "/auth",
		Summary:     "Complete account verification",
		Description: "Exchanges a verification code and an osu! authorization code for a session.",
	}, h.AuthHandler)

	huma.Register(api, huma.Operation{
		OperationID: "post-deauth",
		Method:      http.MethodPost,
		Path:        "/deauth",
		Summary:     "Unlink the authenticated account",
		Middlewares: huma.Middlewares{h.auth},
	}, h.DeauthHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/user",
		Summary:     "Get the authenticated user",
		Middlewares: huma.Middlewares{h.auth},
	}, h.GetUserHandler)
}

// sessionCookie builds the session cookie for a freshly bound session.
func (h *Handler) sessionCookie(sessionID string) http.Cookie {
	return http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.cookie.CookieDomain,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredSessionCookie builds the cookie that clears the session client-side.
func (h *Handler) expiredSessionCookie() http.Cookie {
	return http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
