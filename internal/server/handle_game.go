package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/whereami"
)

// GameGenerator assembles and persists a whole game.
type GameGenerator interface {
	GenerateGame(ctx context.Context, req game.GameRequest) (whereami.Game, error)
}

// GameDetailResponse is the response for GET /api/games/{id}.
type GameDetailResponse struct {
	Game  whereami.Game   `json:"game"`
	Score *whereami.Score `json:"score,omitempty"`
}

// gameQuery holds the query parameters shared by game and round generation.
type gameQuery struct {
	rounds int
	clues  int
	filter catalog.Filter
}

func parseGameQuery(r *http.Request) (gameQuery, error) {
	q := r.URL.Query()
	rounds, err := optionalInt(q.Get("rounds"))
	if err != nil {
		return gameQuery{}, errors.New("rounds must be an integer")
	}
	clues, err := optionalInt(q.Get("clues"))
	if err != nil {
		return gameQuery{}, errors.New("clues must be an integer")
	}
	return gameQuery{
		rounds: rounds,
		clues:  clues,
		filter: catalog.ParseFilter(q.Get("include"), q.Get("exclude")),
	}, nil
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// writeGenerationError maps a failed pipeline to a response. Nothing partial
// is ever returned.
func writeGenerationError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNoMatchingLocation) {
		writeError(w, http.StatusBadRequest, "no location matches the country filter")
		return
	}
	writeError(w, http.StatusServiceUnavailable, "could not find enough content, please retry")
}

func handleGenerateGame(games GameGenerator, limits game.Limits, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseGameQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rounds, clues := limits.Normalize(q.rounds, q.clues)

		// A client disconnect must not abort pipelines that are already
		// spending gateway quota.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
		defer cancel()
		g, err := games.GenerateGame(ctx, game.GameRequest{Rounds: rounds, Clues: clues, Filter: q.filter})
		if err != nil {
			logger.Warn("game generation failed", "rounds", rounds, "clues", clues, "error", err)
			writeGenerationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, g)
	}
}

func handleGetGame(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		g, err := store.GetGame(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			logger.Error("loading game", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := GameDetailResponse{Game: g}
		sc, err := store.ScoreByGame(r.Context(), id)
		switch {
		case err == nil:
			resp.Score = &sc
		case !errors.Is(err, ErrNotFound):
			logger.Error("loading score", "game_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
