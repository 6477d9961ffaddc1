package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/whereami"
)

// GuessRequest is one round's answer, in round order.
type GuessRequest struct {
	GuessLat float64 `json:"guessLat" validate:"latitude"`
	GuessLng float64 `json:"guessLng" validate:"longitude"`
}

// ScoreRequest is the request body for POST /api/score.
type ScoreRequest struct {
	GameID       string         `json:"gameId" validate:"required"`
	RoundGuesses []GuessRequest `json:"roundGuesses" validate:"required,min=1,dive"`
}

// ScoreResponse is the response for POST /api/score.
type ScoreResponse struct {
	ScoreID     string                `json:"scoreId"`
	Score       int                   `json:"score"`
	RoundScores []whereami.RoundGuess `json:"roundScores"`
}

func handleSubmitScore(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		g, err := store.GetGame(r.Context(), req.GameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			logger.Error("loading game", "id", req.GameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		guesses := make([]whereami.Coordinates, len(req.RoundGuesses))
		for i, rg := range req.RoundGuesses {
			guesses[i] = whereami.Coordinates{Lat: rg.GuessLat, Lng: rg.GuessLng}
		}
		total, rounds, err := game.ScoreGuesses(g, guesses)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sc := whereami.Score{GameID: g.ID, Score: total, RoundScores: rounds}
		if acct, ok := accountFrom(r.Context()); ok {
			sc.AccountID = acct.ID
		}

		saved, err := store.SaveScore(r.Context(), sc)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "this game has already been scored")
			return
		}
		if err != nil {
			logger.Error("saving score", "game_id", g.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("score submitted", "game_id", g.ID, "score", total, "account_id", sc.AccountID)
		writeJSON(w, http.StatusCreated, ScoreResponse{
			ScoreID:     saved.ID,
			Score:       saved.Score,
			RoundScores: saved.RoundScores,
		})
	}
}

// handleLeaderboard returns the best scores. n is capped at size.
func handleLeaderboard(store Store, size int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := size
		if v := r.URL.Query().Get("n"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 {
				writeError(w, http.StatusBadRequest, "n must be a positive integer")
				return
			}
			n = min(parsed, size)
		}

		scores, err := store.TopScores(r.Context(), n)
		if err != nil {
			logger.Error("loading leaderboard", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, scores)
	}
}
