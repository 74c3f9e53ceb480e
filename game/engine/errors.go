package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPitIndex = errors.New("invalid pit index")
	ErrEmptyPit        = errors.New("pit is empty")
	ErrGameOver        = errors.New("game is already over")
	ErrInvalidState    = errors.New("invalid game state")
)

// MoveError reports a rejected move. The game state is untouched whenever one
// is returned.
type MoveError struct {
	Player Player
	Pit    int
	Err    error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move rejected for player %s pit %d: %v", e.Player, e.Pit, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// ErrorCode maps engine errors to short machine-friendly codes
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPitIndex):
		return "invalid_pit"
	case errors.Is(err, ErrEmptyPit):
		return "empty_pit"
	case errors.Is(err, ErrGameOver):
		return "game_over"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return ""
	}
}
