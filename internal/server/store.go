package server

import (
	"context"
	"errors"

	"github.com/playperu/whereami/internal/whereami"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken: a username,
	// or a second score for the same game.
	ErrConflict = errors.New("conflict")
)

// Store persists everything the HTTP layer owns. Games are written once by
// the assembler and only read afterwards.
type Store interface {
	SaveGame(ctx context.Context, g whereami.Game) (whereami.Game, error)
	GetGame(ctx context.Context, id string) (whereami.Game, error)

	SaveScore(ctx context.Context, s whereami.Score) (whereami.Score, error)
	ScoreByGame(ctx context.Context, gameID string) (whereami.Score, error)
	TopScores(ctx context.Context, n int) ([]whereami.Score, error)
	ScoresByAccount(ctx context.Context, accountID string) ([]whereami.Score, error)

	CreateAccount(ctx context.Context, username, email, passwordHash string) (whereami.Account, error)
	AccountByUsername(ctx context.Context, username string) (acct whereami.Account, passwordHash string, err error)
	GetAccount(ctx context.Context, id string) (whereami.Account, error)

	CreateSession(ctx context.Context, accountID string) (token string, err error)
	DeleteSession(ctx context.Context, token string) error
	AccountFromSession(ctx context.Context, token string) (whereami.Account, error)
}
