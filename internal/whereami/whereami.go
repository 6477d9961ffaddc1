// Package whereami defines the core domain types shared by the round
// pipeline, the catalog and the HTTP layer. It has no external
// dependencies.
package whereami

import (
	"strings"
	"time"
)

// Coordinates is a WGS 84 point. Two locations are the same place when their
// coordinates compare equal.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is one entry of the location catalog.
type Location struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// InCountry reports whether the location lies in country, ignoring case.
func (l Location) InCountry(country string) bool {
	return strings.EqualFold(strings.TrimSpace(l.Country), strings.TrimSpace(country))
}

// Place is the human-readable name attached to a round.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Clue is one normalized piece of media shown to the player.
type Clue struct {
	SourceID  string `json:"id"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	IsImage   bool   `json:"isImage"`
}

// Round is one location's worth of clues plus the true coordinates.
type Round struct {
	Coordinates Coordinates `json:"coords"`
	Location    Place       `json:"location"`
	Clues       []Clue      `json:"clues"`
}

// Game is an ordered set of rounds. Round order is load-bearing: guesses are
// scored positionally against it.
type Game struct {
	ID        string    `json:"id"`
	Rounds    []Round   `json:"rounds"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoundGuess is a player's answer for one round.
type RoundGuess struct {
	RoundScore int     `json:"roundScore"`
	DistanceKm float64 `json:"distanceKm"`
	GuessLat   float64 `json:"guessLat"`
	GuessLng   float64 `json:"guessLng"`
}

// Score is a finished play-through of a game.
type Score struct {
	ID          string       `json:"id"`
	GameID      string       `json:"gameId"`
	AccountID   string       `json:"accountId,omitempty"`
	Username    string       `json:"username,omitempty"`
	Score       int          `json:"score"`
	RoundScores []RoundGuess `json:"roundScores"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlayerStats summarizes every score an account has submitted.
type PlayerStats struct {
	GamesPlayed      int     `json:"gamesPlayed"`
	BestScore        int     `json:"bestScore"`
	WorstScore       int     `json:"worstScore"`
	AvgScore         float64 `json:"avgScore"`
	NumPerfectGames  int     `json:"numPerfectGames"`
	NumPerfectRounds int     `json:"numPerfectRounds"`
	RecentGames      []Score `json:"recentGames"`
}
