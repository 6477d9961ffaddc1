// Package game turns raw map playlists into rounds and rounds into games.
//
// A round pipeline draws a location from the catalog, fetches the stories
// posted near it, and builds a round from a random sample of them, trying a
// fresh location whenever the content falls short. A game runs several of
// those pipelines concurrently and persists the result.
package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playperu/whereami/internal/snapmap"
	"github.com/playperu/whereami/internal/whereami"
)

// Builder normalizes playlists into rounds. It is safe for concurrent use.
type Builder struct {
	now        func() time.Time
	formatTime TimeFormatter

	mu  sync.Mutex
	rng *rand.Rand
}

type BuilderOption func(*Builder)

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func WithTimeFormatter(f TimeFormatter) BuilderOption {
	return func(b *Builder) { b.formatTime = f }
}

func WithRand(r *rand.Rand) BuilderOption {
	return func(b *Builder) { b.rng = r }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		now:        time.Now,
		formatTime: RelativeTime,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildRound samples clueCount stories with distinct ids from pl and
// packages them with loc. It fails with ErrInsufficientContent when the
// playlist is too small and ErrMalformedContent when a sampled story cannot
// be turned into a clue.
func (b *Builder) BuildRound(pl *snapmap.Playlist, loc whereami.Location, clueCount int) (whereami.Round, error) {
	if clueCount < 1 {
		return whereami.Round{}, fmt.Errorf("clue count must be positive, got %d", clueCount)
	}
	if pl.Count() < clueCount {
		return whereami.Round{}, fmt.Errorf("%w: %d items, need %d", ErrInsufficientContent, pl.Count(), clueCount)
	}

	picked := b.sample(pl.Elements, clueCount)
	if len(picked) < clueCount {
		return whereami.Round{}, fmt.Errorf("%w: %d distinct items, need %d", ErrInsufficientContent, len(picked), clueCount)
	}

	now := b.now()
	clues := make([]whereami.Clue, 0, clueCount)
	for _, el := range picked {
		clue, err := b.clue(now, el)
		if err != nil {
			return whereami.Round{}, err
		}
		clues = append(clues, clue)
	}

	return whereami.Round{
		Coordinates: loc.Coordinates(),
		Location:    whereami.Place{City: loc.City, Country: loc.Country},
		Clues:       clues,
	}, nil
}

// sample walks a random permutation of the elements and keeps the first n
// with unseen ids. Walking a permutation bounds the work even when most ids
// repeat.
func (b *Builder) sample(elements []snapmap.Element, n int) []snapmap.Element {
	b.mu.Lock()
	order := b.rng.Perm(len(elements))
	b.mu.Unlock()

	seen := make(map[string]struct{}, n)
	picked := make([]snapmap.Element, 0, n)
	for _, i := range order {
		el := elements[i]
		if _, dup := seen[el.ID]; dup {
			continue
		}
		seen[el.ID] = struct{}{}
		picked = append(picked, el)
		if len(picked) == n {
			break
		}
	}
	return picked
}

func (b *Builder) clue(now time.Time, el snapmap.Element) (whereami.Clue, error) {
	if el.ID == "" {
		return whereami.Clue{}, fmt.Errorf("%w: item without id", ErrMalformedContent)
	}
	if el.Timestamp <= 0 {
		return whereami.Clue{}, fmt.Errorf("%w: item %q: missing timestamp", ErrMalformedContent, el.ID)
	}
	if el.SnapInfo == nil {
		return whereami.Clue{}, fmt.Errorf("%w: item %q: missing media info", ErrMalformedContent, el.ID)
	}

	clue := whereami.Clue{
		SourceID:  el.ID,
		Timestamp: b.formatTime(now, el.Timestamp.Time()),
	}

	if el.SnapInfo.IsVideo() {
		smi := el.SnapInfo.StreamingMediaInfo
		if smi == nil || smi.PrefixURL == "" {
			return whereami.Clue{}, fmt.Errorf("%w: item %q: incomplete streaming media info", ErrMalformedContent, el.ID)
		}
		clue.URL = smi.PrefixURL + smi.VideoSuffix()
		return clue, nil
	}

	pmi := el.SnapInfo.PublicMediaInfo
	if pmi == nil || pmi.PublicImageMediaInfo == nil || pmi.PublicImageMediaInfo.MediaURL == "" {
		return whereami.Clue{}, fmt.Errorf("%w: item %q: no image url", ErrMalformedContent, el.ID)
	}
	clue.URL = pmi.PublicImageMediaInfo.MediaURL
	clue.IsImage = true
	return clue, nil
}
