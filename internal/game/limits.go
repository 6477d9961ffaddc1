package game

// Limits bounds how large a requested game may be. Both counts drive the
// number of calls made to the rate-limited gateway.
type Limits struct {
	DefaultRounds int
	MaxRounds     int
	DefaultClues  int
	MaxClues      int
}

var DefaultLimits = Limits{
	DefaultRounds: 5,
	MaxRounds:     10,
	DefaultClues:  5,
	MaxClues:      15,
}

// Normalize brings requested counts into [1, max]. A missing, zero or
// negative count is replaced by the default, not raised to 1, so "rounds=0"
// yields a default-sized game. Counts above the maximum are capped.
func (l Limits) Normalize(rounds, clues int) (int, int) {
	return normalizeCount(rounds, l.DefaultRounds, l.MaxRounds), normalizeCount(clues, l.DefaultClues, l.MaxClues)
}

func normalizeCount(n, def, upper int) int {
	if n < 1 {
		n = def
	}
	if n > upper {
		n = upper
	}
	return n
}
