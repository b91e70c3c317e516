package user

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/kohaku-bot/kohaku/internal/config"
	"github.com/kohaku-bot/kohaku/internal/contextx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService lets each test script the service behavior.
type stubService struct {
	issueFn  func(ctx context.Context, discordID, discordUsername string) (*User, bool, error)
	verifyFn func(ctx context.Context, kohakuCode, osuCode, sessionID string) (*User, error)
	deauthFn func(ctx context.Context, discordID, sessionID string, revokeRole bool) (*User, error)
	fetchFn  func(ctx context.Context, userID string) (*User, error)
}

func (s *stubService) IssueCode(ctx context.Context, discordID, discordUsername string) (*User, bool, error) {
	return s.issueFn(ctx, discordID, discordUsername)
}

func (s *stubService) Verify(ctx context.Context, kohakuCode, osuCode, sessionID string) (*User, error) {
	return s.verifyFn(ctx, kohakuCode, osuCode, sessionID)
}

func (s *stubService) Deauthenticate(ctx context.Context, discordID, sessionID string, revokeRole bool) (*User, error) {
	return s.deauthFn(ctx, discordID, sessionID, revokeRole)
}

func (s *stubService) FetchByID(ctx context.Context, userID string) (*User, error) {
	return s.fetchFn(ctx, userID)
}

func sampleUser() *User {
	osuID := int64(124493)
	osuName := "Cookiezi"
	return &User{
		UserID:          "user-1",
		DiscordID:       "discord-1",
		DiscordUsername: "peppy",
		OsuID:           &osuID,
		OsuUsername:     &osuName,
		Verified:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testAuth injects a fixed identity, standing in for the session middleware.
func testAuth(ctx huma.Context, next func(huma.Context)) {
	ctx = huma.WithValue(ctx, contextx.UserIDKey, "user-1")
	ctx = huma.WithValue(ctx, contextx.SessionIDKey, "sid-1")
	next(ctx)
}

func newTestAPI(t *testing.T, svc Service) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)

	cookieCfg := config.SessionConfig{
		CookieName: "kohaku_session",
		TTL:        720 * time.Hour,
	}
	h := NewHandler(svc, testLogger(), cookieCfg, testAuth)
	h.RegisterRoutes(api)
	return api
}

func TestAuthEndpointSuccess(t *testing.T) {
	var gotSessionID string
	svc := &stubService{
		verifyFn: func(_ context.Context, kohakuCode, osuCode, sessionID string) (*User, error) {
			assert.Equal(t, "the-kohaku-code", kohakuCode)
			assert.Equal(t, "the-osu-code", osuCode)
			gotSessionID = sessionID
			return sampleUser(), nil
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Post("/auth", map[string]any{
		"kohaku_code": "the-kohaku-code",
		"osu_code":    "the-osu-code",
	})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, gotSessionID)
	assert.True(t, strings.HasPrefix(gotSessionID, "kohaku:"))

	setCookie := resp.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "kohaku_session=")
	assert.Contains(t, setCookie, "HttpOnly")

	body := resp.Body.String()
	assert.Contains(t, body, `"user_id":"user-1"`)
	assert.Contains(t, body, `"verified":true`)
	assert.NotContains(t, body, "access_token")
	assert.NotContains(t, body, "verification_code")
}

func TestAuthEndpointMissingFields(t *testing.T) {
	svc := &stubService{
		verifyFn: func(_ context.Context, _, _, _ string) (*User, error) {
			t.Fatal("service must not be reached on invalid input")
			return nil, nil
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Post("/auth", map[string]any{"kohaku_code": "only-one"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "osu_code")
}

func TestAuthEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"unknown code", ErrNotFound, http.StatusNotFound, "ErrNotFound"},
		{"replayed code", ErrAlreadyVerified, http.StatusConflict, "ErrAlreadyVerified"},
		{"rejected osu code", ErrInvalidOsuCode, http.StatusForbidden, "ErrInvalidOsuCode"},
		{"provider down", ErrInternal, http.StatusInternalServerError, "ErrInternal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				verifyFn: func(_ context.Context, _, _, _ string) (*User, error) {
					return nil, tc.serviceErr
				},
			}
			api := newTestAPI(t, svc)

			resp := api.Post("/auth", map[string]any{
				"kohaku_code": "code",
				"osu_code":    "code",
			})
			assert.Equal(t, tc.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tc.wantCode)
		})
	}
}

func TestGetUserEndpoint(t *testing.T) {
	svc := &stubService{
		fetchFn: func(_ context.Context, userID string) (*User, error) {
			assert.Equal(t, "user-1", userID)
			return sampleUser(), nil
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Get("/user")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"osu_username":"Cookiezi"`)
}

func TestGetUserEndpointStaleSession(t *testing.T) {
	svc := &stubService{
		fetchFn: func(_ context.Context, _ string) (*User, error) {
			return nil, ErrInvalidSession
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Get("/user")
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "ErrInvalidSession")
}

func TestDeauthEndpoint(t *testing.T) {
	unlinked := sampleUser()
	unlinked.Verified = false
	unlinked.OsuID = nil
	unlinked.OsuUsername = nil

	svc := &stubService{
		fetchFn: func(_ context.Context, _ string) (*User, error) {
			return sampleUser(), nil
		},
		deauthFn: func(_ context.Context, discordID, sessionID string, revokeRole bool) (*User, error) {
			assert.Equal(t, "discord-1", discordID)
			assert.Equal(t, "sid-1", sessionID)
			assert.True(t, revokeRole)
			return unlinked, nil
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Post("/deauth")
	require.Equal(t, http.StatusOK, resp.Code)

	setCookie := resp.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "kohaku_session=")
	assert.Contains(t, setCookie, "Max-Age=0")
	assert.Contains(t, resp.Body.String(), `"verified":false`)
}

func TestDeauthEndpointNotVerified(t *testing.T) {
	svc := &stubService{
		fetchFn: func(_ context.Context, _ string) (*User, error) {
			return sampleUser(), nil
		},
		deauthFn: func(_ context.Context, _, _ string, _ bool) (*User, error) {
			return nil, ErrNotVerified
		},
	}
	api := newTestAPI(t, svc)

	resp := api.Post("/deauth")
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "ErrNotVerified")
}
