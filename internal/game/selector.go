package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/metrics"
	"github.com/playperu/whereami/internal/snapmap"
	"github.com/playperu/whereami/internal/whereami"
)

const DefaultMaxAttempts = 10

// LocationSource hands out candidate locations and learns which ones worked.
type LocationSource interface {
	Pick(ctx context.Context, f catalog.Filter) (whereami.Location, error)
	RecordSuccess(ctx context.Context, loc whereami.Location) error
}

// ContentFetcher returns the stories posted near a point.
type ContentFetcher interface {
	FetchPlaylist(ctx context.Context, lat, lng float64, radiusMeters, zoom int) (*snapmap.Playlist, error)
}

type SelectorConfig struct {
	RadiusMeters int
	Zoom         int
	MaxAttempts  int
}

// Selector runs one round pipeline: draw a location, fetch its content and
// build a round, moving on to a new location after every failure.
type Selector struct {
	locations LocationSource
	content   ContentFetcher
	builder   *Builder
	cfg       SelectorConfig
	logger    *slog.Logger
}

func NewSelector(locations LocationSource, content ContentFetcher, builder *Builder, cfg SelectorConfig, logger *slog.Logger) *Selector {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Selector{
		locations: locations,
		content:   content,
		builder:   builder,
		cfg:       cfg,
		logger:    logger,
	}
}

// SelectRound returns a round with clueCount clues for a location matching
// f. catalog.ErrNoMatchingLocation is returned immediately; content and
// gateway failures consume one attempt each until ErrRoundTimeout.
func (s *Selector) SelectRound(ctx context.Context, f catalog.Filter, clueCount int) (whereami.Round, error) {
	logger := s.logger
	if i, ok := RoundIndex(ctx); ok {
		logger = logger.With("round", i+1)
	}
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return whereami.Round{}, err
		}

		loc, err := s.locations.Pick(ctx, f)
		if err != nil {
			return whereami.Round{}, fmt.Errorf("picking location: %w", err)
		}

		round, err := s.attempt(ctx, loc, clueCount)
		if err == nil {
			metrics.RoundAttempts.WithLabelValues("ok").Inc()
			logger.Info("round built", "city", loc.City, "country", loc.Country, "attempt", attempt)
			if err := s.locations.RecordSuccess(ctx, loc); err != nil {
				logger.Warn("recording catalog location failed", "city", loc.City, "error", err)
			}
			return round, nil
		}

		lastErr = err
		log := logger.With("city", loc.City, "country", loc.Country, "attempt", attempt, "error", err)
		switch {
		case errors.Is(err, ErrInsufficientContent):
			metrics.RoundAttempts.WithLabelValues("insufficient").Inc()
			log.Debug("not enough content, trying another location")
		case errors.Is(err, ErrMalformedContent):
			metrics.RoundAttempts.WithLabelValues("malformed").Inc()
			log.Warn("malformed content, trying another location")
		case errors.Is(err, snapmap.ErrGateway):
			metrics.RoundAttempts.WithLabelValues("gateway").Inc()
			log.Warn("content gateway failed, trying another location")
		default:
			return whereami.Round{}, err
		}
	}

	return whereami.Round{}, fmt.Errorf("%w after %d attempts: %w", ErrRoundTimeout, s.cfg.MaxAttempts, lastErr)
}

func (s *Selector) attempt(ctx context.Context, loc whereami.Location, clueCount int) (whereami.Round, error) {
	pl, err := s.content.FetchPlaylist(ctx, loc.Lat, loc.Lng, s.cfg.RadiusMeters, s.cfg.Zoom)
	if err != nil {
		if ctx.Err() != nil {
			return whereami.Round{}, ctx.Err()
		}
		return whereami.Round{}, fmt.Errorf("fetching playlist: %w", err)
	}
	return s.builder.BuildRound(pl, loc, clueCount)
}
