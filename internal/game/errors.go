package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientContent means the playlist held fewer usable items than
	// the requested clue count. It is the normal reason to try another
	// location.
	ErrInsufficientContent = errors.New("insufficient content")

	// ErrMalformedContent means an item passed the count check but its media
	// descriptor could not be turned into a clue. The whole round is dropped.
	ErrMalformedContent = errors.New("malformed content")

	// ErrRoundTimeout means a round pipeline used up its attempt budget.
	ErrRoundTimeout = errors.New("round attempts exhausted")
)

// GenerationError reports the first round pipeline that failed while
// assembling a game.
type GenerationError struct {
	Round int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating game: round %d: %v", e.Round, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
