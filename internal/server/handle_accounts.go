package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/whereami/internal/game"
	"github.com/playperu/whereami/internal/whereami"
)

const recentGames = 10

// SignupRequest is the request body for POST /api/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the request body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by signup and login. Token goes in the
// Authorization header as a bearer token.
type AuthResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
}

// PlayerResponse is the response for GET /api/players/{id}.
type PlayerResponse struct {
	Account whereami.Account     `json:"account"`
	Stats   whereami.PlayerStats `json:"stats"`
}

func handleSignup(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("hashing password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		acct, err := store.CreateAccount(r.Context(), req.Username, strings.ToLower(strings.TrimSpace(req.Email)), string(hash))
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		if err != nil {
			logger.Error("creating account", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := store.CreateSession(r.Context(), acct.ID)
		if err != nil {
			logger.Error("creating session", "account_id", acct.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("account created", "account_id", acct.ID, "username", acct.Username)
		writeJSON(w, http.StatusCreated, AuthResponse{Token: token, AccountID: acct.ID, Username: acct.Username})
	}
}

func handleLogin(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		acct, hash, err := store.AccountByUsername(r.Context(), req.Username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.Error("loading account", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := store.CreateSession(r.Context(), acct.ID)
		if err != nil {
			logger.Error("creating session", "account_id", acct.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{Token: token, AccountID: acct.ID, Username: acct.Username})
	}
}

func handleLogout(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if err := store.DeleteSession(r.Context(), token); err != nil {
				logger.Error("deleting session", "error", err)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handlePlayer(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		acct, err := store.GetAccount(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			logger.Error("loading account", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		scores, err := store.ScoresByAccount(r.Context(), id)
		if err != nil {
			logger.Error("loading scores", "account_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		acct.Email = ""
		writeJSON(w, http.StatusOK, PlayerResponse{Account: acct, Stats: game.Summarize(scores, recentGames)})
	}
}
