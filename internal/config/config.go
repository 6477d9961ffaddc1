package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/whereami.db"`
	PublicDir string     `env:"PUBLIC_DIR" envDefault:"public"`
	RedisURL  string     `env:"REDIS_URL"`

	CatalogBackend  string `env:"CATALOG_BACKEND" envDefault:"file"`
	CatalogPath     string `env:"CATALOG_PATH" envDefault:"data/verified_cities.json"`
	CatalogRedisKey string `env:"CATALOG_REDIS_KEY" envDefault:"whereami:catalog"`

	SnapMapURL     string        `env:"SNAPMAP_URL" envDefault:"https://ms.sc-jpl.com/web/getPlaylist"`
	SnapMapTimeout time.Duration `env:"SNAPMAP_TIMEOUT" envDefault:"10s"`
	SnapMapRPS     float64       `env:"SNAPMAP_RPS" envDefault:"2"`
	SnapMapBurst   int           `env:"SNAPMAP_BURST" envDefault:"4"`

	SearchRadiusMeters int `env:"SEARCH_RADIUS_METERS" envDefault:"3000"`
	SearchZoom         int `env:"SEARCH_ZOOM" envDefault:"2"`
	MaxAttempts        int `env:"MAX_ATTEMPTS" envDefault:"10"`

	// GenerationTimeout overrides the bound derived by GameTimeout.
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT"`

	DefaultRounds int `env:"DEFAULT_ROUNDS" envDefault:"5"`
	MaxRounds     int `env:"MAX_ROUNDS" envDefault:"10"`
	DefaultClues  int `env:"DEFAULT_CLUES" envDefault:"5"`
	MaxClues      int `env:"MAX_CLUES" envDefault:"15"`

	RateLimitGames  int      `env:"RATE_LIMIT_GAMES" envDefault:"30"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:","`
	LeaderboardSize int      `env:"LEADERBOARD_SIZE" envDefault:"25"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// limiterSlack covers time spent queued on the gateway rate limiter.
const limiterSlack = 30 * time.Second

// GameTimeout bounds one generation request: a pipeline that uses every
// attempt and times out on each of them, plus rate limiter waits.
func (c Config) GameTimeout() time.Duration {
	if c.GenerationTimeout > 0 {
		return c.GenerationTimeout
	}
	return time.Duration(max(c.MaxAttempts, 1))*c.SnapMapTimeout + limiterSlack
}

func (c Config) validate() error {
	switch c.CatalogBackend {
	case "file":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("CATALOG_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}
	if c.MaxRounds < 1 || c.MaxClues < 1 {
		return fmt.Errorf("MAX_ROUNDS and MAX_CLUES must be positive")
	}
	return nil
}
