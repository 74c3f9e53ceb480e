package engine

import (
	"fmt"
	"strings"
)

// RenderBoard draws the board as text. B's row is printed right to left on
// top so that facing pits line up; A's row runs left to right underneath.
//
//	        B6  B5  B4  B3  B2  B1
//	     [  6][  6][  6][  6][  6][  6]
//	[  0]                              [  0]
//	     [  6][  6][  6][  6][  6][  6]
//	        A1  A2  A3  A4  A5  A6
func RenderBoard(state *GameState) string {
	var sb strings.Builder
	b := state.Board

	sb.WriteString("     ")
	for col := PitsPerRow - 1; col >= 0; col-- {
		fmt.Fprintf(&sb, "  B%d ", col+1)
	}
	sb.WriteString("\n     ")
	for col := PitsPerRow - 1; col >= 0; col-- {
		fmt.Fprintf(&sb, "[%3d]", b.Pits[PlayerB][col])
	}
	fmt.Fprintf(&sb, "\n[%3d]%s[%3d]\n     ", b.Stores[PlayerB], strings.Repeat(" ", PitsPerRow*5), b.Stores[PlayerA])
	for col := 0; col < PitsPerRow; col++ {
		fmt.Fprintf(&sb, "[%3d]", b.Pits[PlayerA][col])
	}
	sb.WriteString("\n     ")
	for col := 0; col < PitsPerRow; col++ {
		fmt.Fprintf(&sb, "  A%d ", col+1)
	}
	sb.WriteString("\n")

	return sb.String()
}

// StatusLine summarizes whose turn it is or how the game ended
func StatusLine(state *GameState) string {
	switch {
	case state.GameOver && state.Draw:
		return fmt.Sprintf("Draw %d-%d", state.Board.Stores[PlayerA], state.Board.Stores[PlayerB])
	case state.GameOver && state.Winner != nil:
		return fmt.Sprintf("%s (%s) wins %d-%d", state.PlayerName(*state.Winner), *state.Winner,
			state.Board.Stores[*state.Winner], state.Board.Stores[state.Winner.Other()])
	default:
		return fmt.Sprintf("%s (%s) to move", state.PlayerName(state.Turn), state.Turn)
	}
}

// SlotLabel names a slot as shown in RenderBoard, e.g. "A3" or "store B"
func SlotLabel(s Slot) string {
	if s.Kind == StoreSlot {
		return "store " + s.Row.String()
	}
	return fmt.Sprintf("%s%d", s.Row, s.Column+1)
}
