package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/config"
	"github.com/playperu/whereami/internal/database"
	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/handler/health"
	"github.com/playperu/whereami/internal/migrations"
	"github.com/playperu/whereami/internal/server"
	"github.com/playperu/whereami/internal/snapmap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{"sqlite": database.Checker{DB: db}}

	// --- Redis (optional) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = redisChecker{rdb}
		logger.Info("connected to redis")
	}

	// --- Location catalog ---
	var catalogStore catalog.Store
	switch cfg.CatalogBackend {
	case "redis":
		rs := catalog.NewRedisStore(rdb, cfg.CatalogRedisKey)
		checks["catalog"] = health.CheckerFunc(rs.Ping)
		catalogStore = rs
	default:
		catalogStore = catalog.NewFileStore(cfg.CatalogPath)
	}
	cat, err := catalog.New(ctx, catalogStore, logger.With("component", "catalog"))
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded", "backend", cfg.CatalogBackend, "locations", cat.Len())

	// --- Round pipeline ---
	content := snapmap.New(snapmap.Options{
		URL:               cfg.SnapMapURL,
		Timeout:           cfg.SnapMapTimeout,
		RequestsPerSecond: cfg.SnapMapRPS,
		Burst:             cfg.SnapMapBurst,
	}, logger.With("component", "snapmap"))

	store := server.NewDocStore(db)
	selector := game.NewSelector(cat, content, game.NewBuilder(), game.SelectorConfig{
		RadiusMeters: cfg.SearchRadiusMeters,
		Zoom:         cfg.SearchZoom,
		MaxAttempts:  cfg.MaxAttempts,
	}, logger.With("component", "selector"))
	assembler := game.NewAssembler(selector, store, logger.With("component", "assembler"))

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Games:  assembler,
		Rounds: selector,
		Store:  store,
		Limits: game.Limits{
			DefaultRounds: cfg.DefaultRounds,
			MaxRounds:     cfg.MaxRounds,
			DefaultClues:  cfg.DefaultClues,
			MaxClues:      cfg.MaxClues,
		},
		Checks:          checks,
		PublicDir:       cfg.PublicDir,
		CORSOrigins:     cfg.CORSOrigins,
		GamesPerMinute:  cfg.RateLimitGames,
		LeaderboardSize: cfg.LeaderboardSize,

		GenerationTimeout: cfg.GameTimeout(),
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
