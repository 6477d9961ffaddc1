// Package catalog holds the curated set of locations known to yield map
// content. Rounds draw candidate locations from it, and locations that
// produce a successful round are written back so later games find content
// faster.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/playperu/whereami/internal/metrics"
	"github.com/playperu/whereami/internal/whereami"
)

var ErrNoMatchingLocation = errors.New("no location matches the filter")

//go:embed seed.json
var seedJSON []byte

// Store persists the full catalog as one document.
type Store interface {
	Load(ctx context.Context) ([]whereami.Location, error)
	Save(ctx context.Context, locs []whereami.Location) error
}

// Appender is implemented by stores that can append atomically on their own,
// which protects the catalog against writers in other processes.
type Appender interface {
	AppendIfAbsent(ctx context.Context, loc whereami.Location) (added bool, err error)
}

// Filter restricts which locations may be drawn. Include wins over Exclude
// when both are set. Avoid lists coordinates already used in the current game.
type Filter struct {
	Include []string
	Exclude []string
	Avoid   []whereami.Coordinates
}

// ParseFilter builds a Filter from comma-separated country lists.
func ParseFilter(include, exclude string) Filter {
	f := Filter{Include: splitCountries(include)}
	if len(f.Include) == 0 {
		f.Exclude = splitCountries(exclude)
	}
	return f
}

func splitCountries(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Match reports whether loc may be drawn under f.
func (f Filter) Match(loc whereami.Location) bool {
	for _, c := range f.Avoid {
		if c == loc.Coordinates() {
			return false
		}
	}
	switch {
	case len(f.Include) > 0:
		return containsCountry(f.Include, loc)
	case len(f.Exclude) > 0:
		return !containsCountry(f.Exclude, loc)
	}
	return true
}

func containsCountry(countries []string, loc whereami.Location) bool {
	for _, c := range countries {
		if loc.InCountry(c) {
			return true
		}
	}
	return false
}

// WithAvoid returns a copy of f that also skips the given coordinates.
func (f Filter) WithAvoid(coords ...whereami.Coordinates) Filter {
	avoid := make([]whereami.Coordinates, 0, len(f.Avoid)+len(coords))
	avoid = append(avoid, f.Avoid...)
	avoid = append(avoid, coords...)
	f.Avoid = avoid
	return f
}

// Catalog is an in-memory snapshot of a Store. All access is serialized by
// one mutex, which also makes the read-modify-write in RecordSuccess safe
// between goroutines of this process.
type Catalog struct {
	mu        sync.Mutex
	store     Store
	locations []whereami.Location
	rng       *rand.Rand
	logger    *slog.Logger
}

type Option func(*Catalog)

// WithRand makes location draws deterministic.
func WithRand(r *rand.Rand) Option {
	return func(c *Catalog) { c.rng = r }
}

// New loads the catalog from store, seeding it with the built-in city list
// when the store is empty.
func New(ctx context.Context, store Store, logger *slog.Logger, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		store:  store,
		logger: logger,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(c)
	}

	locs, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if len(locs) == 0 {
		locs, err = Seed()
		if err != nil {
			return nil, err
		}
		if err := store.Save(ctx, locs); err != nil {
			return nil, fmt.Errorf("seeding catalog: %w", err)
		}
		logger.Info("catalog seeded", "locations", len(locs))
	}
	c.locations = locs
	return c, nil
}

// Seed returns the built-in list of known-good cities.
func Seed() ([]whereami.Location, error) {
	var locs []whereami.Location
	if err := json.Unmarshal(seedJSON, &locs); err != nil {
		return nil, fmt.Errorf("decoding seed catalog: %w", err)
	}
	return locs, nil
}

// Pick draws a location uniformly at random from those matching f.
func (c *Catalog) Pick(_ context.Context, f Filter) (whereami.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates := make([]whereami.Location, 0, len(c.locations))
	for _, loc := range c.locations {
		if f.Match(loc) {
			candidates = append(candidates, loc)
		}
	}
	if len(candidates) == 0 {
		return whereami.Location{}, ErrNoMatchingLocation
	}
	return candidates[c.rng.IntN(len(candidates))], nil
}

// RecordSuccess appends loc to the catalog unless an entry with the same
// coordinates already exists.
func (c *Catalog) RecordSuccess(ctx context.Context, loc whereami.Location) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.store.(Appender); ok {
		added, err := a.AppendIfAbsent(ctx, loc)
		if err != nil {
			return fmt.Errorf("appending to catalog: %w", err)
		}
		if !contains(c.locations, loc) {
			c.locations = append(c.locations, loc)
		}
		if added {
			metrics.CatalogAdditions.Inc()
			c.logger.Info("location added to catalog", "city", loc.City, "country", loc.Country)
		}
		return nil
	}

	// Re-read so entries written by other processes are not clobbered.
	locs, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	if contains(locs, loc) {
		c.locations = locs
		return nil
	}

	locs = append(locs, loc)
	if err := c.store.Save(ctx, locs); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	c.locations = locs
	metrics.CatalogAdditions.Inc()
	c.logger.Info("location added to catalog", "city", loc.City, "country", loc.Country)
	return nil
}

// Len returns the number of locations in the snapshot.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locations)
}

// Locations returns a copy of the snapshot.
func (c *Catalog) Locations() []whereami.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]whereami.Location, len(c.locations))
	copy(out, c.locations)
	return out
}

func contains(locs []whereami.Location, loc whereami.Location) bool {
	for _, l := range locs {
		if l.Coordinates() == loc.Coordinates() {
			return true
		}
	}
	return false
}
