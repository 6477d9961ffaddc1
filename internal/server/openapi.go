package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/whereami/internal/whereami"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents GET /healthz: one entry per checked dependency.
type HealthResponse map[string]struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

type generateQuery struct {
	Rounds  int    `query:"rounds" description:"Number of rounds; defaults and caps are server-configured."`
	Clues   int    `query:"clues" description:"Clues per round; defaults and caps are server-configured."`
	Include string `query:"include" description:"Comma-separated countries to draw from, case-insensitive."`
	Exclude string `query:"exclude" description:"Comma-separated countries to skip; ignored when include is set."`
}

type idPath struct {
	ID string `path:"id"`
}

type leaderboardQuery struct {
	N int `query:"n" description:"Number of scores to return, capped at the leaderboard size."`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "WhereAmI API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the WhereAmI geolocation guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/game
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/game")
	getGame.SetSummary("Generate a game")
	getGame.SetDescription("Builds every round concurrently from live map content and stores the game. Either all rounds succeed or nothing is returned.")
	getGame.AddReqStructure(generateQuery{})
	getGame.AddRespStructure(whereami.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getGame)

	// GET /api/round
	getRound, _ := r.NewOperationContext(http.MethodGet, "/api/round")
	getRound.SetSummary("Generate a round")
	getRound.SetDescription("Builds a single round without storing it. The rounds parameter is ignored.")
	getRound.AddReqStructure(generateQuery{})
	getRound.AddRespStructure(whereami.Round{}, openapi.WithHTTPStatus(http.StatusOK))
	getRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getRound)

	// GET /api/games/{id}
	getStored, _ := r.NewOperationContext(http.MethodGet, "/api/games/{id}")
	getStored.SetSummary("Get game")
	getStored.SetDescription("Returns a stored game for replay or review, with its score once submitted.")
	getStored.AddReqStructure(idPath{})
	getStored.AddRespStructure(GameDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getStored.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStored)

	// POST /api/score
	postScore, _ := r.NewOperationContext(http.MethodPost, "/api/score")
	postScore.SetSummary("Submit score")
	postScore.SetDescription("Scores one guess per round, in round order. Linked to the account when a Bearer token is sent.")
	postScore.AddReqStructure(ScoreRequest{})
	postScore.AddRespStructure(ScoreResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postScore.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postScore.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postScore.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postScore)

	// GET /api/score
	getScores, _ := r.NewOperationContext(http.MethodGet, "/api/score")
	getScores.SetSummary("Leaderboard")
	getScores.SetDescription("Returns the best scores, highest first.")
	getScores.AddReqStructure(leaderboardQuery{})
	getScores.AddRespStructure([]whereami.Score{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getScores)

	// POST /api/signup
	postSignup, _ := r.NewOperationContext(http.MethodPost, "/api/signup")
	postSignup.SetSummary("Sign up")
	postSignup.SetDescription("Creates an account and returns a session token.")
	postSignup.AddReqStructure(SignupRequest{})
	postSignup.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSignup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSignup)

	// POST /api/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticates with username and password and returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Deletes the session behind the Bearer token.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/players/{id}
	getPlayer, _ := r.NewOperationContext(http.MethodGet, "/api/players/{id}")
	getPlayer.SetSummary("Player profile")
	getPlayer.SetDescription("Returns a player's public profile and score statistics.")
	getPlayer.AddReqStructure(idPath{})
	getPlayer.AddRespStructure(PlayerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getPlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getPlayer)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
