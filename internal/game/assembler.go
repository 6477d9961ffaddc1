package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/metrics"
	"github.com/playperu/whereami/internal/whereami"
)

type ctxKey int

const ctxKeyRoundIndex ctxKey = iota

func withRoundIndex(ctx context.Context, i int) context.Context {
	return context.WithValue(ctx, ctxKeyRoundIndex, i)
}

// RoundIndex returns the zero-based position in the game of the round
// pipeline running under ctx.
func RoundIndex(ctx context.Context) (int, bool) {
	i, ok := ctx.Value(ctxKeyRoundIndex).(int)
	return i, ok
}

// RoundSelector produces one round per call.
type RoundSelector interface {
	SelectRound(ctx context.Context, f catalog.Filter, clueCount int) (whereami.Round, error)
}

// GameSaver persists a finished game and returns it with its identity set.
type GameSaver interface {
	SaveGame(ctx context.Context, g whereami.Game) (whereami.Game, error)
}

// GameRequest is a normalized request; see Limits.Normalize.
type GameRequest struct {
	Rounds int
	Clues  int
	Filter catalog.Filter
}

type Assembler struct {
	rounds RoundSelector
	saver  GameSaver
	logger *slog.Logger
}

func NewAssembler(rounds RoundSelector, saver GameSaver, logger *slog.Logger) *Assembler {
	return &Assembler{rounds: rounds, saver: saver, logger: logger}
}

// GenerateGame runs req.Rounds round pipelines concurrently and saves the
// game only if every one of them succeeds. Round i of the game is the result
// of the i-th pipeline regardless of completion order. Duplicate locations
// are re-rolled while the catalog still has unused candidates.
func (a *Assembler) GenerateGame(ctx context.Context, req GameRequest) (g whereami.Game, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		metrics.GamesGenerated.WithLabelValues(outcome).Inc()
		metrics.GameGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	if req.Rounds < 1 || req.Clues < 1 {
		return whereami.Game{}, fmt.Errorf("invalid game request: %d rounds, %d clues", req.Rounds, req.Clues)
	}

	rounds := make([]whereami.Round, req.Rounds)
	eg, egctx := errgroup.WithContext(ctx)
	for i := range rounds {
		eg.Go(func() error {
			r, err := a.rounds.SelectRound(withRoundIndex(egctx, i), req.Filter, req.Clues)
			if err != nil {
				return &GenerationError{Round: i + 1, Err: err}
			}
			rounds[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		a.logger.Error("game generation failed", "rounds", req.Rounds, "clues", req.Clues, "error", err)
		return whereami.Game{}, err
	}

	if err := a.dedupe(ctx, req, rounds); err != nil {
		a.logger.Error("game generation failed", "rounds", req.Rounds, "clues", req.Clues, "error", err)
		return whereami.Game{}, err
	}

	saved, err := a.saver.SaveGame(ctx, whereami.Game{Rounds: rounds})
	if err != nil {
		return whereami.Game{}, fmt.Errorf("saving game: %w", err)
	}

	a.logger.Info("game generated", "id", saved.ID, "rounds", len(saved.Rounds), "duration_ms", time.Since(start).Milliseconds())
	return saved, nil
}

// dedupe re-runs the pipeline for every round whose coordinates already
// appear earlier in the game, steering the new draw away from all
// coordinates in use. When the filtered catalog has nothing left to offer
// the duplicate is kept.
func (a *Assembler) dedupe(ctx context.Context, req GameRequest, rounds []whereami.Round) error {
	seen := make(map[whereami.Coordinates]bool, len(rounds))
	for i := range rounds {
		c := rounds[i].Coordinates
		if !seen[c] {
			seen[c] = true
			continue
		}

		used := make([]whereami.Coordinates, 0, len(rounds))
		for _, r := range rounds {
			used = append(used, r.Coordinates)
		}

		r, err := a.rounds.SelectRound(withRoundIndex(ctx, i), req.Filter.WithAvoid(used...), req.Clues)
		switch {
		case errors.Is(err, catalog.ErrNoMatchingLocation):
			a.logger.Warn("duplicate location kept, catalog exhausted", "round", i+1, "lat", c.Lat, "lng", c.Lng)
		case err != nil:
			return &GenerationError{Round: i + 1, Err: err}
		default:
			rounds[i] = r
		}
		seen[rounds[i].Coordinates] = true
	}
	return nil
}
