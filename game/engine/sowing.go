package engine

import (
	"fmt"
	"time"
)

// nextSlot returns the slot that follows s on the ring. Pits run in
// increasing column order and each row ends in its owner's store; the
// caller is responsible for skipping the opponent's store.
func nextSlot(s Slot) Slot {
	if s.Kind == StoreSlot {
		return Slot{Row: s.Row.Other(), Column: 0, Kind: PitSlot}
	}
	if s.Column+1 < PitsPerRow {
		return Slot{Row: s.Row, Column: s.Column + 1, Kind: PitSlot}
	}
	return Slot{Row: s.Row, Column: StoreIndex, Kind: StoreSlot}
}

// OppositeColumn returns the pit facing column on the other row
func OppositeColumn(column int) int {
	return PitsPerRow - 1 - column
}

// validateMove checks a 1-based pit for the player to move without touching state
func (gs *GameState) validateMove(pit int) error {
	if pit < 1 || pit > PitsPerRow {
		return &MoveError{Player: gs.Turn, Pit: pit, Err: ErrInvalidPitIndex}
	}
	if gs.GameOver {
		return &MoveError{Player: gs.Turn, Pit: pit, Err: ErrGameOver}
	}
	if gs.Board.Pits[gs.Turn][pit-1] == 0 {
		return &MoveError{Player: gs.Turn, Pit: pit, Err: ErrEmptyPit}
	}
	return nil
}

// ApplyMove sows the given 1-based pit of the player to move, applies capture,
// turn and end-of-game rules, and returns what happened. On error the state
// is unchanged.
func (gs *GameState) ApplyMove(pit int, config *GameConfig) (*MoveResult, error) {
	if err := gs.validateMove(pit); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultGameConfig()
	}
	config = config.withDefaults()

	mover := gs.Turn
	board := &gs.Board
	col := pit - 1

	stones := board.Pits[mover][col]
	board.Pits[mover][col] = 0

	result := &MoveResult{
		Player:     mover,
		Pit:        pit,
		StonesSown: stones,
		Steps:      make([]Step, 0, stones+2),
	}

	slot := Slot{Row: mover, Column: col, Kind: PitSlot}
	for remaining := stones; remaining > 0; {
		slot = nextSlot(slot)
		if slot.Kind == StoreSlot {
			if slot.Row != mover {
				continue
			}
			board.Stores[mover]++
		} else {
			board.Pits[slot.Row][slot.Column]++
		}
		remaining--
		result.Steps = append(result.Steps, Step{Kind: StepSow, Slot: slot, Board: *board})
	}
	result.LastSlot = slot

	// Capture: last stone in a previously empty own pit facing a non-empty pit
	if slot.Kind == PitSlot && slot.Row == mover && board.Pits[mover][slot.Column] == 1 {
		opponent := mover.Other()
		opposite := OppositeColumn(slot.Column)
		if seized := board.Pits[opponent][opposite]; seized > 0 {
			board.Stores[mover] += seized + 1
			board.Pits[opponent][opposite] = 0
			board.Pits[mover][slot.Column] = 0
			result.Captured = true
			result.CapturedCount = seized + 1
			result.Steps = append(result.Steps, Step{
				Kind:  StepCapture,
				Slot:  Slot{Row: opponent, Column: opposite, Kind: PitSlot},
				Board: *board,
			})
		}
	}

	if slot.IsStoreOf(mover) {
		result.ExtraTurn = true
	} else {
		gs.Turn = mover.Other()
	}

	switch {
	case result.Captured:
		gs.Message = fmt.Sprintf(config.Messages.Capture, gs.PlayerName(mover), result.CapturedCount)
	case result.ExtraTurn:
		gs.Message = fmt.Sprintf(config.Messages.ExtraTurn, gs.PlayerName(mover))
	default:
		gs.Message = fmt.Sprintf(config.Messages.Turn, gs.PlayerName(gs.Turn))
	}

	if board.RowEmpty(PlayerA) || board.RowEmpty(PlayerB) {
		gs.finish(config, result)
	}

	result.NextTurn = gs.Turn
	result.GameOver = gs.GameOver
	result.Winner = gs.Winner
	result.Draw = gs.Draw
	result.Board = *board
	return result, nil
}

// finish sweeps each row into its owner's store and decides the outcome
func (gs *GameState) finish(config *GameConfig, result *MoveResult) {
	board := &gs.Board
	for _, p := range []Player{PlayerA, PlayerB} {
		left := board.RowSum(p)
		if left == 0 {
			continue
		}
		board.Stores[p] += left
		board.Pits[p] = [PitsPerRow]int{}
		result.Steps = append(result.Steps, Step{
			Kind:  StepSweep,
			Slot:  Slot{Row: p, Column: StoreIndex, Kind: StoreSlot},
			Board: *board,
		})
	}

	gs.GameOver = true
	a, b := board.Stores[PlayerA], board.Stores[PlayerB]
	switch {
	case a == b:
		gs.Draw = true
		gs.Winner = nil
		gs.Message = fmt.Sprintf(config.Messages.Draw, a)
	default:
		winner, hi, lo := PlayerA, a, b
		if b > a {
			winner, hi, lo = PlayerB, b, a
		}
		gs.Winner = &winner
		gs.Message = fmt.Sprintf(config.Messages.Victory, gs.PlayerName(winner), hi, lo)
	}
}

// AddMoveToHistory records a successful move
func (gs *GameState) AddMoveToHistory(result *MoveResult, at time.Time) {
	entry := MoveHistoryEntry{
		MoveNumber:    gs.TotalMoves + 1,
		Player:        result.Player,
		Pit:           result.Pit,
		StonesSown:    result.StonesSown,
		LastSlot:      result.LastSlot,
		CapturedCount: result.CapturedCount,
		ExtraTurn:     result.ExtraTurn,
		Stores:        gs.Board.Stores,
		Timestamp:     at.Unix(),
	}
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++
}

// LegalMoves returns the 1-based pits the player to move may choose
func (gs *GameState) LegalMoves() []int {
	if gs.GameOver {
		return []int{}
	}
	moves := make([]int, 0, PitsPerRow)
	for col, n := range gs.Board.Pits[gs.Turn] {
		if n > 0 {
			moves = append(moves, col+1)
		}
	}
	return moves
}
