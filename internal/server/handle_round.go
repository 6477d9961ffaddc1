package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/whereami"
)

// RoundSelector runs a single round pipeline.
type RoundSelector interface {
	SelectRound(ctx context.Context, f catalog.Filter, clueCount int) (whereami.Round, error)
}

// handleRound builds one unsaved round, for clients that stream rounds one
// at a time instead of asking for a whole game.
func handleRound(rounds RoundSelector, limits game.Limits, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseGameQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, clues := limits.Normalize(1, q.clues)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
		defer cancel()
		round, err := rounds.SelectRound(ctx, q.filter, clues)
		if err != nil {
			logger.Warn("round generation failed", "clues", clues, "error", err)
			writeGenerationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, round)
	}
}
