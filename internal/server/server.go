package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kohaku-bot/kohaku/internal/config"
	appmw "github.com/kohaku-bot/kohaku/internal/middleware"
	"github.com/kohaku-bot/kohaku/internal/modules/user"
	"github.com/kohaku-bot/kohaku/internal/session"
)

// New creates and configures a new server instance.
func New(cfg *config.Config, log *slog.Logger, userService user.Service, sessions session.Backend) chi.Router {
	// Create a new Chi router and Huma API.
	router := chi.NewMux()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger) // Chi's built-in logger, can be replaced with a custom slog one.
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))
	apiConfig := huma.DefaultConfig("Kohaku Auth API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookie": {
			Type: "apiKey",
			In:   "cookie",
			Name: cfg.Session.CookieName,
		},
	}
	api := humachi.New(router, apiConfig)

	sessionAuth := appmw.SessionAuthHuma(sessions, cfg.Session.CookieName, log)
	userHandler := user.NewHandler(userService, log, cfg.Session, sessionAuth)
	userHandler.RegisterRoutes(api)

	// Register a simple health check endpoint.
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		}
	}, error) {
		resp := &struct {
			Body struct {
				Status string `json:"status"`
			}
		}{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}
