package game

import (
	"errors"
	"fmt"
	"sort"

	"github.com/playperu/whereami/internal/geo"
	"github.com/playperu/whereami/internal/whereami"
)

// ErrGuessCount is returned when a submission does not carry exactly one
// guess per round.
var ErrGuessCount = errors.New("guess count does not match round count")

// ScoreGuesses pairs guess i with round i of g and scores each by distance.
func ScoreGuesses(g whereami.Game, guesses []whereami.Coordinates) (int, []whereami.RoundGuess, error) {
	if len(guesses) != len(g.Rounds) {
		return 0, nil, fmt.Errorf("%w: got %d, want %d", ErrGuessCount, len(guesses), len(g.Rounds))
	}

	total := 0
	rounds := make([]whereami.RoundGuess, len(guesses))
	for i, guess := range guesses {
		truth := g.Rounds[i].Coordinates
		km := geo.HaversineKm(truth.Lat, truth.Lng, guess.Lat, guess.Lng)
		pts := geo.RoundScore(km)
		rounds[i] = whereami.RoundGuess{
			RoundScore: pts,
			DistanceKm: km,
			GuessLat:   guess.Lat,
			GuessLng:   guess.Lng,
		}
		total += pts
	}
	return total, rounds, nil
}

// Summarize computes an account's stats from its scores. A game is perfect
// when every one of its rounds scored the maximum.
func Summarize(scores []whereami.Score, recent int) whereami.PlayerStats {
	st := whereami.PlayerStats{GamesPlayed: len(scores), RecentGames: []whereami.Score{}}
	if len(scores) == 0 {
		return st
	}

	sum := 0
	st.BestScore = scores[0].Score
	st.WorstScore = scores[0].Score
	for _, s := range scores {
		sum += s.Score
		st.BestScore = max(st.BestScore, s.Score)
		st.WorstScore = min(st.WorstScore, s.Score)

		perfect := len(s.RoundScores) > 0
		for _, r := range s.RoundScores {
			if r.RoundScore >= geo.MaxRoundScore {
				st.NumPerfectRounds++
			} else {
				perfect = false
			}
		}
		if perfect {
			st.NumPerfectGames++
		}
	}
	st.AvgScore = float64(sum) / float64(len(scores))

	byDate := append([]whereami.Score(nil), scores...)
	sort.SliceStable(byDate, func(i, j int) bool {
		return byDate[i].CreatedAt.After(byDate[j].CreatedAt)
	})
	st.RecentGames = byDate[:min(recent, len(byDate))]
	return st
}
