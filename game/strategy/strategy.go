// Package strategy picks Kalaha moves by looking one move ahead on a copy of
// the game. Strategies never touch the engine they are given.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/kalaha-game/game/engine"
)

// Strategy chooses a pit for the player to move
type Strategy interface {
	Name() string
	NextMove(config *engine.GameConfig, state engine.GameState) (int, error)
}

// ErrNoMove is returned when the player to move has no legal pit
var ErrNoMove = errors.New("no legal move")

// Lowest always plays the lowest non-empty pit
type Lowest struct{}

func (Lowest) Name() string { return "lowest" }

func (Lowest) NextMove(config *engine.GameConfig, state engine.GameState) (int, error) {
	legal := state.LegalMoves()
	if state.GameOver || len(legal) == 0 {
		return 0, ErrNoMove
	}
	return legal[0], nil
}

// Greedy plays the move with the biggest immediate store gain. Ties go to a
// move that earns an extra turn, then to the lowest pit.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) NextMove(config *engine.GameConfig, state engine.GameState) (int, error) {
	if state.GameOver {
		return 0, ErrNoMove
	}

	mover := state.Turn
	bestPit, bestScore := 0, -1
	for _, pit := range state.LegalMoves() {
		result, err := Try(config, state, pit)
		if err != nil {
			return 0, err
		}

		score := 2 * (result.Board.Stores[mover] - state.Board.Stores[mover])
		if result.ExtraTurn && !result.GameOver {
			score++
		}
		if score > bestScore {
			bestPit, bestScore = pit, score
		}
	}
	if bestPit == 0 {
		return 0, ErrNoMove
	}
	return bestPit, nil
}

// ByName returns the strategy called name
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return Greedy{}, nil
	case "lowest":
		return Lowest{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (use greedy or lowest)", name)
	}
}

// Try plays pit on a copy of state
func Try(config *engine.GameConfig, state engine.GameState, pit int) (*engine.MoveResult, error) {
	game, err := engine.NewEngineFromState(config, state)
	if err != nil {
		return nil, err
	}
	return game.ApplyMove(pit)
}

// LongestChain returns the longest pit sequence the player to move can play
// before the turn passes, the final turn-passing move included. Chains are
// cut off at maxDepth moves.
func LongestChain(config *engine.GameConfig, state engine.GameState, maxDepth int) ([]int, error) {
	if maxDepth <= 0 || state.GameOver {
		return nil, nil
	}

	var best []int
	for _, pit := range state.LegalMoves() {
		game, err := engine.NewEngineFromState(config, state)
		if err != nil {
			return nil, err
		}
		result, err := game.ApplyMove(pit)
		if err != nil {
			return nil, err
		}

		chain := []int{pit}
		if result.ExtraTurn && !result.GameOver {
			rest, err := LongestChain(config, game.Snapshot(), maxDepth-1)
			if err != nil {
				return nil, err
			}
			chain = append(chain, rest...)
		}
		if len(chain) > len(best) {
			best = chain
		}
	}
	return best, nil
}

// SelfPlay plays a whole game from state with a and b choosing for players A
// and B. It fails if the game is still running after maxMoves.
func SelfPlay(config *engine.GameConfig, state engine.GameState, a, b Strategy, maxMoves int) (*engine.GameState, int, error) {
	game, err := engine.NewEngineFromState(config, state)
	if err != nil {
		return nil, 0, err
	}

	moves := 0
	for !game.IsGameOver() {
		if moves >= maxMoves {
			return nil, moves, fmt.Errorf("game did not finish within %d moves", maxMoves)
		}

		s := a
		if game.Turn() == engine.PlayerB {
			s = b
		}
		pit, err := s.NextMove(config, game.Snapshot())
		if err != nil {
			return nil, moves, err
		}
		if _, err := game.ApplyMove(pit); err != nil {
			return nil, moves, err
		}
		moves++
	}

	final := game.Snapshot()
	return &final, moves, nil
}
