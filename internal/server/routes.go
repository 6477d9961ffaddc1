package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/whereami/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("WhereAmI API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware(deps.CORSOrigins))

		// Logout clears whatever token it is given, so a stale one must not
		// be rejected first.
		r.Post("/logout", handleLogout(deps.Store, logger))

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware(deps.Store, logger))

			limit := gameRateLimit(deps.GamesPerMinute)
			r.With(limit).Get("/game", handleGenerateGame(deps.Games, deps.Limits, deps.GenerationTimeout, logger))
			r.With(limit).Get("/round", handleRound(deps.Rounds, deps.Limits, deps.GenerationTimeout, logger))
			r.Get("/games/{id}", handleGetGame(deps.Store, logger))

			r.Post("/score", handleSubmitScore(deps.Store, logger))
			r.Get("/score", handleLeaderboard(deps.Store, deps.LeaderboardSize, logger))

			r.Post("/signup", handleSignup(deps.Store, logger))
			r.Post("/login", handleLogin(deps.Store, logger))
			r.Get("/players/{id}", handlePlayer(deps.Store, logger))
		})
	})

	if deps.PublicDir != "" {
		if info, err := os.Stat(deps.PublicDir); err == nil && info.IsDir() {
			logger.Info("serving static client", "dir", deps.PublicDir)
			r.NotFound(handleStatic(deps.PublicDir))
		}
	}
}
