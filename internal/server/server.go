package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/handler/health"
)

// Deps is everything the HTTP layer is wired to.
type Deps struct {
	Games  GameGenerator
	Rounds RoundSelector
	Store  Store
	Limits game.Limits
	Checks map[string]health.Checker

	PublicDir       string
	CORSOrigins     []string
	GamesPerMinute  int
	LeaderboardSize int

	// GenerationTimeout caps one game or round request. The write timeout
	// is derived from it so a finished game always reaches the client.
	GenerationTimeout time.Duration
}

const (
	defaultGenerationTimeout = 90 * time.Second
	writeMargin              = 15 * time.Second
)

func (d Deps) withDefaults() Deps {
	if d.LeaderboardSize <= 0 {
		d.LeaderboardSize = 25
	}
	if d.Limits == (game.Limits{}) {
		d.Limits = game.DefaultLimits
	}
	if d.GenerationTimeout <= 0 {
		d.GenerationTimeout = defaultGenerationTimeout
	}
	return d
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, deps Deps) *Server {
	deps = deps.withDefaults()
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, deps),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      deps.GenerationTimeout + writeMargin,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the full router. It is separate from New so tests can
// drive it through httptest.
func NewHandler(logger *slog.Logger, deps Deps) http.Handler {
	deps = deps.withDefaults()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
