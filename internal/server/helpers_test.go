package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/playperu/whereami/internal/catalog"
	"github.com/playperu/whereami/internal/database"
	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/migrations"
	"github.com/playperu/whereami/internal/whereami"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) *DocStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(ctx, db, discardLogger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewDocStore(db)
}

// stubGames generates games from fixed rounds and saves them in the store.
type stubGames struct {
	mu    sync.Mutex
	store Store
	err   error
	reqs  []game.GameRequest
}

func (s *stubGames) GenerateGame(ctx context.Context, req game.GameRequest) (whereami.Game, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.err != nil {
		return whereami.Game{}, s.err
	}
	rounds := make([]whereami.Round, req.Rounds)
	for i := range rounds {
		rounds[i] = testRound(float64(i), float64(i))
	}
	return s.store.SaveGame(ctx, whereami.Game{Rounds: rounds})
}

type stubRounds struct {
	round   whereami.Round
	err     error
	filters []catalog.Filter
	clues   []int
}

func (s *stubRounds) SelectRound(_ context.Context, f catalog.Filter, clueCount int) (whereami.Round, error) {
	s.filters = append(s.filters, f)
	s.clues = append(s.clues, clueCount)
	return s.round, s.err
}

func testRound(lat, lng float64) whereami.Round {
	return whereami.Round{
		Coordinates: whereami.Coordinates{Lat: lat, Lng: lng},
		Location:    whereami.Place{City: "Somewhere", Country: "Nowhere"},
		Clues: []whereami.Clue{
			{SourceID: "a", Timestamp: "1 hours ago", URL: "https://cdn.example/a.jpg", IsImage: true},
		},
	}
}

type testEnv struct {
	store  *DocStore
	games  *stubGames
	rounds *stubRounds
	h      http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := setupStore(t)
	env := &testEnv{
		store:  store,
		games:  &stubGames{store: store},
		rounds: &stubRounds{round: testRound(48.8, 2.3)},
	}
	env.h = NewHandler(discardLogger(), Deps{
		Games:           env.games,
		Rounds:          env.rounds,
		Store:           store,
		Limits:          game.DefaultLimits,
		LeaderboardSize: 3,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

// signup creates an account and returns its session token and id.
func (e *testEnv) signup(t *testing.T, username string) AuthResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/signup", "", SignupRequest{Username: username, Password: "correct-horse"})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[AuthResponse](t, w)
}
