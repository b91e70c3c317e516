package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kohaku-bot/kohaku/internal/contextx"
	apphttpx "github.com/kohaku-bot/kohaku/internal/httpx"
	"github.com/kohaku-bot/kohaku/internal/session"
)

// SessionAuthHuma is a router-agnostic Huma middleware that resolves the
// session cookie through the session backend and injects the user ID and the
// session ID into the request context for downstream handlers.
// On failure it writes an RFC7807 problem+json response with code ErrInvalidSession.
func SessionAuthHuma(sessions session.Backend, cookieName string, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)

		writeForbidden := func(detail string) {
			reqID := chimw.GetReqID(r.Context())
			p := &apphttpx.Problem{
				Type:      "urn:problem:auth/err-invalid-session",
				Title:     http.StatusText(http.StatusForbidden),
				Status:    http.StatusForbidden,
				Detail:    detail,
				Code:      "ErrInvalidSession",
				RequestID: reqID,
			}
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(p.GetStatus())
			_ = json.NewEncoder(w).Encode(p)
		}

		// 1. Session cookie.
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			writeForbidden("missing session cookie")
			return
		}

		// 2. Resolve the session to its owner.
		userID, err := sessions.Read(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				logger.Error("session lookup failed", "error", err)
			}
			writeForbidden("invalid or expired session")
			return
		}

		// 3. Inject identity into context for downstream handlers.
		ctx = huma.WithValue(ctx, contextx.UserIDKey, userID)
		ctx = huma.WithValue(ctx, contextx.SessionIDKey, cookie.Value)
		next(ctx)
	}
}
