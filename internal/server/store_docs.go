package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/whereami/internal/whereami"
)

const (
	sessionTTL = 30 * 24 * time.Hour
	timeLayout = "2006-01-02T15:04:05.000Z"
)

type accountDoc struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (d accountDoc) account() whereami.Account {
	return whereami.Account{ID: d.ID, Username: d.Username, Email: d.Email, CreatedAt: d.CreatedAt}
}

// DocStore implements Store with one JSONB document per row. Columns outside
// data exist only for lookups, ordering and constraints. The schema is owned
// by the migrations package.
type DocStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db, now: time.Now}
}

func (s *DocStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q queryRower, dest any, query string, args ...any) error {
	var data string
	err := q.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func newToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Games

func (s *DocStore) SaveGame(ctx context.Context, g whereami.Game) (whereami.Game, error) {
	g.ID = uuid.NewString()
	g.CreatedAt = s.timestamp()

	data, err := json.Marshal(g)
	if err != nil {
		return whereami.Game{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, created_at, data) VALUES (?, ?, jsonb(?))`,
		g.ID, g.CreatedAt.Format(timeLayout), string(data),
	)
	if err != nil {
		return whereami.Game{}, fmt.Errorf("inserting game: %w", err)
	}
	return g, nil
}

func (s *DocStore) GetGame(ctx context.Context, id string) (whereami.Game, error) {
	var g whereami.Game
	err := getDoc(ctx, s.db, &g, `SELECT json(data) FROM games WHERE id = ?`, id)
	return g, err
}

// Scores

func (s *DocStore) SaveScore(ctx context.Context, sc whereami.Score) (whereami.Score, error) {
	sc.ID = uuid.NewString()
	sc.CreatedAt = s.timestamp()
	sc.Username = ""

	var accountID any
	if sc.AccountID != "" {
		accountID = sc.AccountID
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return whereami.Score{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores (id, game_id, account_id, score, created_at, data)
		 VALUES (?, ?, ?, ?, ?, jsonb(?))`,
		sc.ID, sc.GameID, accountID, sc.Score, sc.CreatedAt.Format(timeLayout), string(data),
	)
	if isUniqueViolation(err) {
		return whereami.Score{}, fmt.Errorf("game %s already scored: %w", sc.GameID, ErrConflict)
	}
	if err != nil {
		return whereami.Score{}, fmt.Errorf("inserting score: %w", err)
	}
	return sc, nil
}

// scoreColumns joins the owning account's username onto each score.
const scoreColumns = `SELECT json(s.data), COALESCE(a.username, '')
	FROM scores s LEFT JOIN accounts a ON a.id = s.account_id`

func (s *DocStore) ScoreByGame(ctx context.Context, gameID string) (whereami.Score, error) {
	scores, err := s.queryScores(ctx, scoreColumns+` WHERE s.game_id = ?`, gameID)
	if err != nil {
		return whereami.Score{}, err
	}
	if len(scores) == 0 {
		return whereami.Score{}, ErrNotFound
	}
	return scores[0], nil
}

// TopScores returns the n best scores, earliest first among ties.
func (s *DocStore) TopScores(ctx context.Context, n int) ([]whereami.Score, error) {
	return s.queryScores(ctx, scoreColumns+` ORDER BY s.score DESC, s.created_at ASC LIMIT ?`, n)
}

// ScoresByAccount returns every score of an account, newest first.
func (s *DocStore) ScoresByAccount(ctx context.Context, accountID string) ([]whereami.Score, error) {
	return s.queryScores(ctx, scoreColumns+` WHERE s.account_id = ? ORDER BY s.created_at DESC`, accountID)
}

func (s *DocStore) queryScores(ctx context.Context, query string, args ...any) ([]whereami.Score, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []whereami.Score{}
	for rows.Next() {
		var data, username string
		if err := rows.Scan(&data, &username); err != nil {
			return nil, err
		}
		var sc whereami.Score
		if err := json.Unmarshal([]byte(data), &sc); err != nil {
			return nil, err
		}
		sc.Username = username
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// Accounts

func (s *DocStore) CreateAccount(ctx context.Context, username, email, passwordHash string) (whereami.Account, error) {
	doc := accountDoc{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.timestamp(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return whereami.Account{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, data) VALUES (?, ?, jsonb(?))`,
		doc.ID, doc.Username, string(data),
	)
	if isUniqueViolation(err) {
		return whereami.Account{}, fmt.Errorf("username %q taken: %w", username, ErrConflict)
	}
	if err != nil {
		return whereami.Account{}, fmt.Errorf("inserting account: %w", err)
	}
	return doc.account(), nil
}

func (s *DocStore) AccountByUsername(ctx context.Context, username string) (whereami.Account, string, error) {
	var doc accountDoc
	if err := getDoc(ctx, s.db, &doc, `SELECT json(data) FROM accounts WHERE username = ?`, username); err != nil {
		return whereami.Account{}, "", err
	}
	return doc.account(), doc.PasswordHash, nil
}

func (s *DocStore) GetAccount(ctx context.Context, id string) (whereami.Account, error) {
	var doc accountDoc
	if err := getDoc(ctx, s.db, &doc, `SELECT json(data) FROM accounts WHERE id = ?`, id); err != nil {
		return whereami.Account{}, err
	}
	return doc.account(), nil
}

// Sessions

func (s *DocStore) CreateSession(ctx context.Context, accountID string) (string, error) {
	token := newToken()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, created_at) VALUES (?, ?, ?)`,
		token, accountID, s.timestamp().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting session: %w", err)
	}
	return token, nil
}

func (s *DocStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, token)
	return err
}

// AccountFromSession resolves a bearer token. Expired sessions are treated
// as missing.
func (s *DocStore) AccountFromSession(ctx context.Context, token string) (whereami.Account, error) {
	cutoff := s.timestamp().Add(-sessionTTL).Format(timeLayout)

	var doc accountDoc
	err := getDoc(ctx, s.db, &doc, `
		SELECT json(a.data)
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.id = ? AND s.created_at > ?
	`, token, cutoff)
	if errors.Is(err, ErrNotFound) {
		return whereami.Account{}, errNoSession
	}
	if err != nil {
		return whereami.Account{}, err
	}
	return doc.account(), nil
}
