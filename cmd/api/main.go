package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/kohaku-bot/kohaku/internal/bot"
	"github.com/kohaku-bot/kohaku/internal/cache"
	"github.com/kohaku-bot/kohaku/internal/config"
	"github.com/kohaku-bot/kohaku/internal/database"
	"github.com/kohaku-bot/kohaku/internal/modules/user"
	"github.com/kohaku-bot/kohaku/internal/osuapi"
	"github.com/kohaku-bot/kohaku/internal/server"
	"github.com/kohaku-bot/kohaku/internal/session"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on" short:"p" default:"8080"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		// Use a structured logger
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg := config.Load()
		if cfg == nil {
			logger.Error("failed to load configuration")
			os.Exit(1)
		}
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		ctx := context.Background()

		// --- Database & Cache ---
		dbPool, err := database.NewPostgresPool(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		hooks.OnStop(dbPool.Close)
		logger.Info("successfully connected to postgres database")

		// Reads may target a replica; writes always go to the primary.
		readPool := dbPool
		if cfg.Database.ReadURL != "" && cfg.Database.ReadURL != cfg.Database.URL {
			readPool, err = database.NewPostgresPool(ctx, cfg.Database.ReadURL)
			if err != nil {
				logger.Error("failed to connect to postgres read replica", "error", err)
				os.Exit(1)
			}
			hooks.OnStop(readPool.Close)
			logger.Info("successfully connected to postgres read replica")
		}

		// --- Session Backend ---
		var sessions session.Backend
		switch cfg.Session.Backend {
		case "redis":
			redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
			if err != nil {
				logger.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}
			hooks.OnStop(func() { redisClient.Close() })
			logger.Info("successfully connected to redis")
			sessions = session.NewRedisBackend(redisClient, cfg.Session.TTL)
		case "memory":
			sessions = session.NewMemoryBackend()
		default:
			sessions = session.NewPostgresBackend(dbPool)
		}
		logger.Info("session backend ready", "backend", cfg.Session.Backend)

		// --- Module Initialization (Bottom-Up) ---

		// User Module
		userRepo := user.NewRepository(dbPool, readPool)
		tokenStore := user.NewTokenRepository(userRepo)
		osuClient := osuapi.NewClient(osuapi.Config{
			ClientID:     cfg.Osu.ClientID,
			ClientSecret: cfg.Osu.ClientSecret,
			RedirectURL:  cfg.Osu.RedirectURL,
			AuthURL:      cfg.Osu.AuthURL,
			TokenURL:     cfg.Osu.TokenURL,
			APIURL:       cfg.Osu.APIURL,
		}, tokenStore, logger)

		discordBot, err := bot.New(cfg.Discord, cfg.Frontend.URL, logger)
		if err != nil {
			logger.Error("failed to create discord bot", "error", err)
			os.Exit(1)
		}

		userService := user.NewService(&user.Config{
			Repo:     userRepo,
			Sessions: sessions,
			Osu:      osuClient,
			Roles:    discordBot,
			Logger:   logger,
		})
		discordBot.Bind(userService)

		router := server.New(cfg, logger, userService, sessions)
		hooks.OnStart(func() {
			if err := discordBot.Start(); err != nil {
				logger.Error("discord bot failed to start", "error", err)
				os.Exit(1)
			}
			logger.Info("discord bot started")

			logger.Info(fmt.Sprintf("Starting server on port %d...", options.Port))
			if err := http.ListenAndServe(fmt.Sprintf(":%d", options.Port), router); err != nil {
				slog.Error("Server failed to start", "error", err)
				os.Exit(1)
			}
		})
		hooks.OnStop(func() {
			if err := discordBot.Stop(); err != nil {
				logger.Error("discord bot shutdown failed", "error", err)
			}
		})
	})
	cli.Run()
}
