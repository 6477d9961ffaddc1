package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playperu/whereami/internal/whereami"
)

func TestDocStoreGameRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	in := whereami.Game{Rounds: []whereami.Round{testRound(1, 2), testRound(3, 4), testRound(5, 6)}}
	saved, err := store.SaveGame(ctx, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected identity to be assigned, got %+v", saved)
	}

	got, err := store.GetGame(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Rounds) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(got.Rounds))
	}
	for i, r := range got.Rounds {
		if r.Coordinates.Lat != float64(2*i+1) {
			t.Errorf("round %d lat = %v, want %v", i, r.Coordinates.Lat, 2*i+1)
		}
	}
	if got.Rounds[0].Clues[0].URL != "https://cdn.example/a.jpg" {
		t.Errorf("clue url = %q", got.Rounds[0].Clues[0].URL)
	}

	if _, err := store.GetGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocStoreScores(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	acct, err := store.CreateAccount(ctx, "marco", "", "hash")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	var gameIDs []string
	for i := range 4 {
		g, err := store.SaveGame(ctx, whereami.Game{Rounds: []whereami.Round{testRound(float64(i), 0)}})
		if err != nil {
			t.Fatalf("save game: %v", err)
		}
		gameIDs = append(gameIDs, g.ID)
	}

	for i, pts := range []int{1200, 4800, 300, 4800} {
		sc := whereami.Score{GameID: gameIDs[i], Score: pts}
		if i%2 == 0 {
			sc.AccountID = acct.ID
		}
		if _, err := store.SaveScore(ctx, sc); err != nil {
			t.Fatalf("save score %d: %v", i, err)
		}
	}

	if _, err := store.SaveScore(ctx, whereami.Score{GameID: gameIDs[0], Score: 1}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for second score, got %v", err)
	}

	top, err := store.TopScores(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []int{4800, 4800, 1200}
	if len(top) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(top))
	}
	for i := range want {
		if top[i].Score != want[i] {
			t.Errorf("top[%d] = %d, want %d", i, top[i].Score, want[i])
		}
	}
	if top[2].Username != "marco" {
		t.Errorf("expected username on account score, got %q", top[2].Username)
	}
	if top[0].Username != "" {
		t.Errorf("expected anonymous score, got %q", top[0].Username)
	}

	mine, err := store.ScoresByAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("by account: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 account scores, got %d", len(mine))
	}

	byGame, err := store.ScoreByGame(ctx, gameIDs[1])
	if err != nil {
		t.Fatalf("by game: %v", err)
	}
	if byGame.Score != 4800 {
		t.Errorf("score = %d, want 4800", byGame.Score)
	}
	if _, err := store.ScoreByGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocStoreAccounts(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	acct, err := store.CreateAccount(ctx, "Lucia", "lucia@example.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateAccount(ctx, "lucia", "", "other"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected case-insensitive conflict, got %v", err)
	}

	got, hash, err := store.AccountByUsername(ctx, "LUCIA")
	if err != nil {
		t.Fatalf("by username: %v", err)
	}
	if got.ID != acct.ID || hash != "hash" {
		t.Errorf("got %+v / %q", got, hash)
	}

	if _, _, err := store.AccountByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetAccount(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	acct, err := store.CreateAccount(ctx, "ana", "", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token, err := store.CreateSession(ctx, acct.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	got, err := store.AccountFromSession(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Username != "ana" {
		t.Errorf("username = %q", got.Username)
	}

	now = now.Add(sessionTTL + time.Minute)
	if _, err := store.AccountFromSession(ctx, token); !errors.Is(err, errNoSession) {
		t.Errorf("expected expired session, got %v", err)
	}

	now = now.Add(-sessionTTL)
	if err := store.DeleteSession(ctx, token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.AccountFromSession(ctx, token); !errors.Is(err, errNoSession) {
		t.Errorf("expected deleted session, got %v", err)
	}
}
